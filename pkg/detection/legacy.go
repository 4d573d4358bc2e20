package detection

import (
	"strings"

	"go-botlens/pkg/models"
	"go-botlens/pkg/signature"
)

type legacyEntry struct {
	needles []string
	sig     models.Signature
}

// LegacyMatcher 单段匹配：只查内置表，不区分大小写的子串匹配，置信度固定为1
type LegacyMatcher struct {
	entries []legacyEntry
}

func NewLegacyMatcher() *LegacyMatcher {
	builtin := signature.Builtin()
	entries := make([]legacyEntry, 0, len(builtin))
	for _, sig := range builtin {
		var needles []string
		for _, alt := range strings.Split(sig.Pattern, "|") {
			needles = append(needles, strings.ToLower(alt))
		}
		entries = append(entries, legacyEntry{needles: needles, sig: sig})
	}
	return &LegacyMatcher{entries: entries}
}

func (l *LegacyMatcher) Detect(userAgent string) models.DetectionResult {
	if userAgent == "" {
		return models.DetectionResult{}
	}
	ua := strings.ToLower(userAgent)
	for _, e := range l.entries {
		for _, n := range e.needles {
			if strings.Contains(ua, n) {
				return observe(models.DetectionResult{
					IsBot:      true,
					BotType:    e.sig.Type,
					BotName:    e.sig.Name,
					Method:     models.MethodSignature,
					Confidence: 1.0,
				})
			}
		}
	}
	return models.DetectionResult{}
}

// DetectWithSignals 兼容模式没有启发式阶段，忽略行为画像
func (l *LegacyMatcher) DetectWithSignals(userAgent string, _ *models.FingerprintRecord) models.DetectionResult {
	return l.Detect(userAgent)
}
