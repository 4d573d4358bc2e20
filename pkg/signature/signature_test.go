package signature

import (
	"errors"
	"testing"

	"go-botlens/pkg/config"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRegistry(t *testing.T, custom ...models.Signature) *Registry {
	t.Helper()
	reg, err := NewRegistry(Builtin(), custom)
	require.NoError(t, err)
	return reg
}

func TestBuiltinSignaturesMatchAnywhere(t *testing.T) {
	m := NewMatcher(newTestRegistry(t))

	for _, sig := range Builtin() {
		ua := "Mozilla/5.0 (compatible; " + sig.Name + "/1.0; +https://example.com/bot)"
		got, ok := m.Match(ua)
		require.True(t, ok, "ua=%s", ua)
		assert.Equal(t, models.SourceBuiltin, got.Signature.Source)
		assert.Equal(t, BuiltinConfidence, got.Confidence)
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	m := NewMatcher(newTestRegistry(t))

	got, ok := m.Match("mozilla/5.0 applewebkit/537.36; compatible; gptbot/1.2")
	require.True(t, ok)
	assert.Equal(t, "gptbot", got.Signature.Type)
}

func TestBuiltinOrderIsPriority(t *testing.T) {
	m := NewMatcher(newTestRegistry(t))

	got, ok := m.Match("Mozilla/5.0 (compatible; Applebot-Extended/0.1)")
	require.True(t, ok)
	assert.Equal(t, "applebot-extended", got.Signature.Type)

	got, ok = m.Match("Googlebot-Image/1.0")
	require.True(t, ok)
	assert.Equal(t, "googlebot-image", got.Signature.Type)
}

func TestCustomSignature(t *testing.T) {
	reg := newTestRegistry(t, models.Signature{Pattern: `acme-?crawler`, Name: "Acme Crawler"})
	m := NewMatcher(reg)

	got, ok := m.Match("AcmeCrawler/3.1")
	require.True(t, ok)
	assert.Equal(t, models.SourceCustom, got.Signature.Source)
	assert.Equal(t, CustomConfidence, got.Confidence)
}

func TestBuiltinWinsOverCustom(t *testing.T) {
	reg := newTestRegistry(t, models.Signature{Pattern: `GPTBot`, Name: "My GPT"})
	m := NewMatcher(reg)

	got, ok := m.Match("GPTBot/1.1")
	require.True(t, ok)
	assert.Equal(t, models.SourceBuiltin, got.Signature.Source)
	assert.Equal(t, "GPTBot", got.Signature.Name)
}

func TestNoMatch(t *testing.T) {
	m := NewMatcher(newTestRegistry(t))

	_, ok := m.Match("Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36")
	assert.False(t, ok)
	_, ok = m.Match("")
	assert.False(t, ok)
}

func TestInvalidCustomPatternSkippedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Set(zap.New(core).Sugar())
	defer logger.Set(prev)

	reg := newTestRegistry(t,
		models.Signature{Pattern: `(unclosed`, Name: "Broken"},
		models.Signature{Pattern: `GoodBot`, Name: "GoodBot"},
	)
	assert.Len(t, reg.Customs(), 1)
	assert.Equal(t, 1, logs.Len())

	got, ok := NewMatcher(reg).Match("GoodBot/1.0")
	require.True(t, ok)
	assert.Equal(t, "GoodBot", got.Signature.Name)
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern(`(?<=x)bot`))
	err := ValidatePattern(`[a-`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	assert.Error(t, ValidatePattern("  "))
}

func TestSetCustomReplaces(t *testing.T) {
	reg := newTestRegistry(t, models.Signature{Pattern: `OldBot`, Name: "OldBot"})
	m := NewMatcher(reg)

	n := reg.SetCustom([]models.Signature{{Pattern: `NewBot`, Name: "NewBot"}})
	assert.Equal(t, 1, n)

	_, ok := m.Match("OldBot/1.0")
	assert.False(t, ok)
	_, ok = m.Match("NewBot/1.0")
	assert.True(t, ok)
}

func TestCanonicalType(t *testing.T) {
	assert.Equal(t, "gptbot", CanonicalType(models.Signature{Name: "GPT Bot"}))
	assert.Equal(t, "claudebot", CanonicalType(models.Signature{Name: "x", Type: "anthropic-ai"}))
	assert.Equal(t, "bingbot", CanonicalType(models.Signature{Name: "Bingbot"}))
	assert.Equal(t, "acme-crawler", CanonicalType(models.Signature{Name: "Acme Crawler!"}))
}

func TestFromConfig(t *testing.T) {
	sigs := FromConfig([]config.CustomSignature{{Pattern: "x", Name: "X", Priority: 5}})
	require.Len(t, sigs, 1)
	assert.Equal(t, models.SourceCustom, sigs[0].Source)
	assert.Equal(t, 5, sigs[0].Priority)
}
