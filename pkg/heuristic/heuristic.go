package heuristic

import (
	"math"
	"strings"

	"go-botlens/pkg/config"
	"go-botlens/pkg/models"
)

// Input 启发式规则的输入。Fingerprint 可能为空（首次出现的访问者）
type Input struct {
	UserAgent   string
	Fingerprint *models.FingerprintRecord
}

// Rule 单条打分规则，返回值累加为总分
type Rule interface {
	Name() string
	Score(in Input) float64
}

// Verdict 启发式判定结果，置信度恒小于1
type Verdict struct {
	BotName    string
	Confidence float64
	Reasons    []string
}

// Classifier 在签名未命中时按规则累加打分
type Classifier struct {
	rules         []Rule
	threshold     float64
	maxConfidence float64
}

// New 按配置的权重装配默认规则
func New(cfg config.Heuristic) *Classifier {
	return NewWithRules(cfg.Threshold, cfg.MaxConfidence, DefaultRules(cfg)...)
}

func NewWithRules(threshold, maxConfidence float64, rules ...Rule) *Classifier {
	if maxConfidence <= 0 || maxConfidence >= 1 {
		maxConfidence = 0.95
	}
	return &Classifier{
		rules:         rules,
		threshold:     threshold,
		maxConfidence: maxConfidence,
	}
}

// DefaultRules 默认规则集
func DefaultRules(cfg config.Heuristic) []Rule {
	return []Rule{
		&AutomationTokenRule{Weight: cfg.AutomationToken, Tokens: automationTokens, Pattern: botToken},
		&ContactURLRule{Weight: cfg.ContactURL},
		&MissingMozillaRule{Weight: cfg.MissingMozilla},
		&ShortAgentRule{Weight: cfg.ShortAgent, MinLength: 20},
		&RegularIntervalRule{Weight: cfg.RegularInterval, MinVisits: cfg.MinVisits, StddevCeiling: cfg.StddevCeiling},
		&DeepSessionRule{Weight: cfg.DeepSession, MinVisits: cfg.MinVisits, PagesPerSession: cfg.PagesPerSession},
		&UniquePathsRule{Weight: cfg.UniquePaths, MinVisits: cfg.MinVisits, Floor: cfg.UniquePathsFloor},
	}
}

// Classify 总分达到阈值时返回判定；否则视为非爬虫流量
func (c *Classifier) Classify(userAgent string, fp *models.FingerprintRecord) (Verdict, bool) {
	in := Input{UserAgent: userAgent, Fingerprint: fp}

	var total float64
	var reasons []string
	for _, r := range c.rules {
		if s := r.Score(in); s > 0 {
			total += s
			reasons = append(reasons, r.Name())
		}
	}
	if total <= 0 || total < c.threshold {
		return Verdict{}, false
	}

	confidence := math.Min(total, c.maxConfidence)
	return Verdict{
		BotName:    Label(userAgent),
		Confidence: math.Round(confidence*100) / 100,
		Reasons:    reasons,
	}, true
}

// 浏览器 UA 中常见、不代表产品名的 token
var genericProducts = map[string]bool{
	"mozilla": true, "applewebkit": true, "chrome": true, "safari": true,
	"gecko": true, "khtml": true, "version": true, "firefox": true,
	"edg": true, "mobile": true, "compatible": true, "like": true,
}

// Label 从 UA 中提取产品名作为爬虫名称，例如 python-requests/2.31 -> python-requests
func Label(userAgent string) string {
	fields := strings.FieldsFunc(userAgent, func(r rune) bool {
		return r == ' ' || r == ';' || r == '(' || r == ')' || r == ','
	})
	for _, f := range fields {
		name, _, ok := strings.Cut(f, "/")
		if !ok || name == "" || strings.Contains(name, ":") {
			continue
		}
		if genericProducts[strings.ToLower(name)] {
			continue
		}
		return name
	}
	return "Unknown Bot"
}
