package detection

import (
	"testing"

	"go-botlens/pkg/config"
	"go-botlens/pkg/heuristic"
	"go-botlens/pkg/models"
	"go-botlens/pkg/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heuristicConfig() config.Heuristic {
	return config.Heuristic{
		Threshold:       0.5,
		MaxConfidence:   0.95,
		MinVisits:       5,
		AutomationToken: 0.6,
		ContactURL:      0.3,
		MissingMozilla:  0.2,
		ShortAgent:      0.2,
	}
}

func newPipeline(t *testing.T, builtin, custom []models.Signature) Detector {
	t.Helper()
	reg, err := signature.NewRegistry(builtin, custom)
	require.NoError(t, err)
	return New(reg, heuristic.New(heuristicConfig()))
}

func TestExampleBotScenario(t *testing.T) {
	d := newPipeline(t, []models.Signature{{Pattern: "ExampleBot", Name: "ExampleBot"}}, nil)

	got := d.Detect("ExampleBot/1.0")
	assert.Equal(t, models.DetectionResult{
		IsBot:      true,
		BotType:    "examplebot",
		BotName:    "ExampleBot",
		Method:     models.MethodSignature,
		Confidence: 1.0,
	}, got)
}

func TestEmptyUserAgent(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), nil)
	assert.False(t, d.Detect("").IsBot)
}

func TestAllBuiltinsDetected(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), nil)

	for _, sig := range signature.Builtin() {
		got := d.Detect("Mozilla/5.0 (compatible; " + sig.Name + "/2.0)")
		require.True(t, got.IsBot, sig.Name)
		assert.Equal(t, models.MethodSignature, got.Method)
		assert.Equal(t, signature.BuiltinConfidence, got.Confidence)
	}
}

func TestCustomSignatureMethod(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), []models.Signature{
		{Pattern: `acme-crawler`, Name: "Acme", Type: "acme"},
	})

	got := d.Detect("Mozilla/5.0 (compatible; Acme-Crawler/1.0)")
	assert.True(t, got.IsBot)
	assert.Equal(t, models.MethodCustomSignature, got.Method)
	assert.Equal(t, "acme", got.BotType)
	assert.Equal(t, signature.CustomConfidence, got.Confidence)
}

func TestBuiltinPrecedesCustom(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), []models.Signature{
		{Pattern: `ClaudeBot`, Name: "Operator Claude"},
	})

	got := d.Detect("ClaudeBot/1.0 (+claudebot@anthropic.com)")
	assert.Equal(t, models.MethodSignature, got.Method)
	assert.Equal(t, "claudebot", got.BotType)
}

func TestHeuristicFallback(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), nil)

	got := d.Detect("Go-http-client/1.1")
	assert.True(t, got.IsBot)
	assert.Equal(t, models.MethodHeuristic, got.Method)
	assert.Equal(t, "Go-http-client", got.BotName)
	assert.Equal(t, "go-http-client", got.BotType)
	assert.Less(t, got.Confidence, 1.0)
}

func TestHumanTraffic(t *testing.T) {
	d := newPipeline(t, signature.Builtin(), nil)

	got := d.Detect("Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	assert.Equal(t, models.DetectionResult{}, got)
}

func TestDegradedModeUsesLegacyMatcher(t *testing.T) {
	d := New(nil, nil)
	_, ok := d.(*LegacyMatcher)
	require.True(t, ok)

	got := d.Detect("Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; compatible; GPTBot/1.2; +https://openai.com/gptbot)")
	assert.Equal(t, models.DetectionResult{
		IsBot:      true,
		BotType:    "gptbot",
		BotName:    "GPTBot",
		Method:     models.MethodSignature,
		Confidence: 1.0,
	}, got)

	// 兼容模式没有启发式阶段
	assert.False(t, d.Detect("curl/8.0").IsBot)
	assert.False(t, d.Detect("").IsBot)
}

func TestLegacyMatchesAlternatives(t *testing.T) {
	got := NewLegacyMatcher().Detect("anthropic-ai")
	assert.Equal(t, "claudebot", got.BotType)
}
