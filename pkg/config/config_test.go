package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "kafka:\n  brokers: [\"k1:9092\"]\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "beats", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Minute, cfg.Tracking.SessionGap)
	assert.Equal(t, 30*time.Minute, cfg.Tracking.DedupWindow)
	assert.Equal(t, "store", cfg.Tracking.DedupBackend)
	assert.Equal(t, 100, cfg.Tracking.HistoryLimit)
	assert.Equal(t, 24*time.Hour, cfg.Tracking.DedupRetention)
	assert.Equal(t, 1024, cfg.Webhook.ReportQueue)
	assert.Equal(t, 0.5, cfg.Detection.Heuristic.Threshold)
	assert.Equal(t, 0.95, cfg.Detection.Heuristic.MaxConfidence)
	assert.Equal(t, 24*time.Hour, cfg.GeoIP.CacheTTL)
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	require.Len(t, cfg.Detection.CustomSignatures, 1)
	assert.Equal(t, "Acme Crawler", cfg.Detection.CustomSignatures[0].Name)
	require.Len(t, cfg.IPVerify.Rules, 1)
	assert.Equal(t, "gptbot", cfg.IPVerify.Rules[0].BotType)
	assert.Equal(t, []string{"/admin", "/private"}, cfg.Tracking.RobotsDisallow)
}

func TestSessionGapAndDedupWindowIndependent(t *testing.T) {
	cfg, err := Load(writeConfig(t, "tracking:\n  session_gap: 45m\n  dedup_window: 10m\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Tracking.SessionGap)
	assert.Equal(t, 10*time.Minute, cfg.Tracking.DedupWindow)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("BOTLENS_TRACKING_DEDUP_WINDOW", "5m")
	cfg, err := Load(writeConfig(t, "tracking:\n  dedup_window: 10m\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.DedupWindow)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"无效正则", "detection:\n  custom_signatures:\n    - pattern: \"(unclosed\"\n      name: \"Bad\"\n"},
		{"缺少名称", "detection:\n  custom_signatures:\n    - pattern: \"ok\"\n"},
		{"未知去重后端", "tracking:\n  dedup_backend: \"memcached\"\n"},
		{"redis 未配置地址", "tracking:\n  dedup_backend: \"redis\"\n"},
		{"置信度上限", "detection:\n  heuristic:\n    max_confidence: 1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
