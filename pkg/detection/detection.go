package detection

import (
	"go-botlens/pkg/heuristic"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
	"go-botlens/pkg/signature"
)

// Detector 对外唯一的分类入口。Pipeline 与 LegacyMatcher 契约一致
type Detector interface {
	Detect(userAgent string) models.DetectionResult
	DetectWithSignals(userAgent string, fp *models.FingerprintRecord) models.DetectionResult
}

// New 依赖齐全时返回完整流水线，否则退化为只查内置表的 LegacyMatcher
func New(registry *signature.Registry, classifier *heuristic.Classifier) Detector {
	if registry == nil || classifier == nil {
		logger.Log.Warnf("检测流水线依赖不可用，使用内置签名兼容模式: registry=%t, classifier=%t",
			registry != nil, classifier != nil)
		return NewLegacyMatcher()
	}
	return NewPipeline(signature.NewMatcher(registry), classifier)
}

// Pipeline 签名 -> 启发式 -> 非爬虫，三段优先级
type Pipeline struct {
	matcher    *signature.Matcher
	classifier *heuristic.Classifier
}

func NewPipeline(matcher *signature.Matcher, classifier *heuristic.Classifier) *Pipeline {
	return &Pipeline{matcher: matcher, classifier: classifier}
}

func (p *Pipeline) Detect(userAgent string) models.DetectionResult {
	return p.DetectWithSignals(userAgent, nil)
}

// DetectWithSignals 与 Detect 相同，额外把已有的行为画像交给启发式分类器
func (p *Pipeline) DetectWithSignals(userAgent string, fp *models.FingerprintRecord) models.DetectionResult {
	if userAgent == "" {
		return models.DetectionResult{}
	}

	if m, ok := p.matcher.Match(userAgent); ok {
		method := models.MethodSignature
		if m.Signature.Source == models.SourceCustom {
			method = models.MethodCustomSignature
		}
		return observe(models.DetectionResult{
			IsBot:      true,
			BotType:    signature.CanonicalType(m.Signature),
			BotName:    m.Signature.Name,
			Method:     method,
			Confidence: m.Confidence,
		})
	}

	if v, ok := p.classifier.Classify(userAgent, fp); ok {
		logger.Log.Debugf("启发式识别为爬虫: bot_name=%s, confidence=%.2f, reasons=%v", v.BotName, v.Confidence, v.Reasons)
		return observe(models.DetectionResult{
			IsBot:      true,
			BotType:    signature.CanonicalType(models.Signature{Name: v.BotName}),
			BotName:    v.BotName,
			Method:     models.MethodHeuristic,
			Confidence: v.Confidence,
		})
	}

	return models.DetectionResult{}
}

func observe(r models.DetectionResult) models.DetectionResult {
	metrics.Detections.WithLabelValues(r.Method).Inc()
	metrics.DetectionConfidence.Observe(r.Confidence)
	return r
}
