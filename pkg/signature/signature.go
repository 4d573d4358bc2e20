package signature

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go-botlens/pkg/config"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/models"

	"github.com/dlclark/regexp2"
)

// 匹配置信度
const (
	BuiltinConfidence = 1.0
	CustomConfidence  = 0.9
)

// customMatchTimeout 运营方正则的单次匹配上限
const customMatchTimeout = 50 * time.Millisecond

var ErrInvalidPattern = errors.New("签名正则无效")

type builtinEntry struct {
	sig models.Signature
	re  *regexp.Regexp
}

type customEntry struct {
	sig models.Signature
	re  *regexp2.Regexp
}

// Registry 显式构造并注入的签名集合
type Registry struct {
	mu      sync.RWMutex
	builtin []builtinEntry
	custom  []customEntry
}

// NewRegistry 编译内置与自定义签名。内置签名编译失败视为错误；
// 自定义签名无效时跳过并记录日志
func NewRegistry(builtin, custom []models.Signature) (*Registry, error) {
	r := &Registry{}
	for _, sig := range builtin {
		re, err := regexp.Compile("(?i)" + sig.Pattern)
		if err != nil {
			return nil, fmt.Errorf("内置签名 %s: %w", sig.Name, err)
		}
		sig.Source = models.SourceBuiltin
		r.builtin = append(r.builtin, builtinEntry{sig: sig, re: re})
	}
	r.SetCustom(custom)
	return r, nil
}

// ValidatePattern 在配置写入时校验运营方正则
func ValidatePattern(pattern string) error {
	if _, err := compileCustom(pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

func compileCustom(pattern string) (*regexp2.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("空模式")
	}
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = customMatchTimeout
	return re, nil
}

// SetCustom 替换运营方签名，返回成功加载的数量
func (r *Registry) SetCustom(sigs []models.Signature) int {
	entries := make([]customEntry, 0, len(sigs))
	for _, sig := range sigs {
		re, err := compileCustom(sig.Pattern)
		if err != nil {
			logger.Log.Warnf("跳过无效自定义签名: name=%s, pattern=%q, error=%v", sig.Name, sig.Pattern, err)
			continue
		}
		sig.Source = models.SourceCustom
		entries = append(entries, customEntry{sig: sig, re: re})
	}

	r.mu.Lock()
	r.custom = entries
	r.mu.Unlock()
	return len(entries)
}

// Builtins 返回已加载的内置签名
func (r *Registry) Builtins() []models.Signature {
	out := make([]models.Signature, 0, len(r.builtin))
	for _, e := range r.builtin {
		out = append(out, e.sig)
	}
	return out
}

// Customs 返回当前的运营方签名
func (r *Registry) Customs() []models.Signature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Signature, 0, len(r.custom))
	for _, e := range r.custom {
		out = append(out, e.sig)
	}
	return out
}

// Match 一次签名命中
type Match struct {
	Signature  models.Signature
	Confidence float64
}

// Matcher 按固定顺序匹配 UA：先内置（注册顺序），后自定义，首个命中即返回
type Matcher struct {
	registry *Registry
}

func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

func (m *Matcher) Match(userAgent string) (Match, bool) {
	if userAgent == "" {
		return Match{}, false
	}

	for _, e := range m.registry.builtin {
		if e.re.MatchString(userAgent) {
			return Match{Signature: e.sig, Confidence: BuiltinConfidence}, true
		}
	}

	m.registry.mu.RLock()
	custom := m.registry.custom
	m.registry.mu.RUnlock()

	for _, e := range custom {
		ok, err := e.re.MatchString(userAgent)
		if err != nil {
			logger.Log.Warnf("自定义签名匹配失败，按未命中处理: name=%s, error=%v", e.sig.Name, err)
			continue
		}
		if ok {
			return Match{Signature: e.sig, Confidence: CustomConfidence}, true
		}
	}
	return Match{}, false
}

// CanonicalType 把签名解析为规范的爬虫类型
func CanonicalType(sig models.Signature) string {
	if sig.Type != "" {
		if t, ok := aliases[strings.ToLower(sig.Type)]; ok {
			return t
		}
		return strings.ToLower(sig.Type)
	}
	name := strings.ToLower(strings.TrimSpace(sig.Name))
	if t, ok := aliases[name]; ok {
		return t
	}
	for _, b := range builtinTable {
		if strings.ToLower(b.Name) == name {
			return b.Type
		}
	}
	return Slug(name)
}

// Slug 生成小写、以连字符分隔的类型标识
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// FromConfig 把配置中的自定义签名转换为模型
func FromConfig(sigs []config.CustomSignature) []models.Signature {
	out := make([]models.Signature, 0, len(sigs))
	for _, c := range sigs {
		out = append(out, models.Signature{
			Pattern:  c.Pattern,
			Name:     c.Name,
			Type:     c.Type,
			Vendor:   c.Vendor,
			Category: c.Category,
			Priority: c.Priority,
			Color:    c.Color,
			Source:   models.SourceCustom,
		})
	}
	return out
}
