package heuristic

import (
	"testing"

	"go-botlens/pkg/config"
	"go-botlens/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Heuristic {
	return config.Heuristic{
		Threshold:        0.5,
		MaxConfidence:    0.95,
		MinVisits:        5,
		AutomationToken:  0.6,
		ContactURL:       0.3,
		MissingMozilla:   0.2,
		ShortAgent:       0.2,
		RegularInterval:  0.3,
		DeepSession:      0.2,
		UniquePaths:      0.1,
		StddevCeiling:    1.0,
		PagesPerSession:  20,
		UniquePathsFloor: 0.9,
	}
}

func f64(v float64) *float64 { return &v }

func TestClassifyHTTPLibrary(t *testing.T) {
	c := New(testConfig())

	v, ok := c.Classify("python-requests/2.31.0", nil)
	require.True(t, ok)
	assert.Equal(t, "python-requests", v.BotName)
	// automation_token + missing_mozilla
	assert.Equal(t, 0.8, v.Confidence)
	assert.Contains(t, v.Reasons, "automation_token")
	assert.Less(t, v.Confidence, 1.0)
}

func TestConfidenceIsCapped(t *testing.T) {
	c := New(testConfig())

	// automation_token + missing_mozilla + short_agent = 1.0
	v, ok := c.Classify("curl/8.4.0", nil)
	require.True(t, ok)
	assert.Equal(t, 0.95, v.Confidence)
}

func TestClassifyBrowserIsNotBot(t *testing.T) {
	c := New(testConfig())

	_, ok := c.Classify("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", nil)
	assert.False(t, ok)
}

func TestClassifyBelowThreshold(t *testing.T) {
	c := New(testConfig())

	// 只有 contact url 一项信号，0.3 < 0.5
	_, ok := c.Classify("Mozilla/5.0 (compatible; Something/1.0; +https://example.com)", nil)
	assert.False(t, ok)
}

func TestClassifyUsesFingerprintSignals(t *testing.T) {
	c := New(testConfig())
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0 Safari/537.36"

	fp := &models.FingerprintRecord{
		VisitCount:            40,
		RequestIntervalAvg:    f64(2),
		RequestIntervalStddev: f64(0.2),
		PagesPerSessionAvg:    40,
		UniquePathsRatio:      1,
	}
	v, ok := c.Classify(ua, fp)
	require.True(t, ok)
	assert.InDelta(t, 0.6, v.Confidence, 1e-9)
	assert.ElementsMatch(t, []string{"regular_interval", "deep_session", "unique_paths"}, v.Reasons)

	// 访问次数不足时行为信号不生效
	fp.VisitCount = 2
	_, ok = c.Classify(ua, fp)
	assert.False(t, ok)
}

func TestCustomRules(t *testing.T) {
	c := NewWithRules(0.5, 0.8, &AutomationTokenRule{Weight: 0.9, Tokens: []string{"acme"}})

	v, ok := c.Classify("AcmeAgent/1.0", nil)
	require.True(t, ok)
	assert.Equal(t, 0.8, v.Confidence)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"python-requests/2.31.0", "python-requests"},
		{"Mozilla/5.0 (compatible; FooFetcher/2.0; +http://foo.example)", "FooFetcher"},
		{"curl/8.4.0", "curl"},
		{"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", "Unknown Bot"},
		{"weird agent", "Unknown Bot"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.ua), tt.ua)
	}
}

func TestAutomationTokenBotBoundary(t *testing.T) {
	rule := &AutomationTokenRule{Weight: 0.6, Tokens: automationTokens, Pattern: botToken}
	tests := []struct {
		ua   string
		want float64
	}{
		{"FooBot/1.0", 0.6},
		{"Mozilla/5.0 (compatible; NewsBot/2.1; +https://news.example)", 0.6},
		{"Mozilla/5.0 (compatible; bot; +https://x.example)", 0.6},
		{"Robot-Agent/3.0", 0.6},
		{"Mozilla/5.0 (Linux; Android 9; CUBOT P30) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.45 Mobile Safari/537.36", 0},
		{"Mozilla/5.0 (Windows NT 10.0; Abbott Labs Build) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rule.Score(Input{UserAgent: tt.ua}), tt.ua)
	}
}

func TestClassifyCubotPhoneIsNotBot(t *testing.T) {
	c := New(testConfig())

	_, ok := c.Classify("Mozilla/5.0 (Linux; Android 9; CUBOT P30) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.45 Mobile Safari/537.36", nil)
	assert.False(t, ok)
}
