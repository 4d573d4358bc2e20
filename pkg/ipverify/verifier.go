package ipverify

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go-botlens/pkg/config"
	"go-botlens/pkg/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	MethodIPRange    = "ip_range"
	MethodReverseDNS = "reverse_dns"

	defaultTimeout = 2 * time.Second
	cacheSize      = 10000
	cacheTTL       = time.Hour
)

// Resolver *net.Resolver 满足该接口，测试中替换
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Result Verified 为 nil 表示无法判断（未知爬虫或 DNS 暂时不可用）
type Result struct {
	Verified *bool
	Method   string
}

type rule struct {
	suffixes []string
	ranges   *RangeSet
}

// 主流搜索引擎公开支持反向 DNS 校验
var defaultRules = []config.IPVerifyRule{
	{BotType: "googlebot", DNSSuffixes: []string{"googlebot.com", "google.com", "googleusercontent.com"}},
	{BotType: "googlebot-image", DNSSuffixes: []string{"googlebot.com", "google.com"}},
	{BotType: "googleother", DNSSuffixes: []string{"googlebot.com", "google.com"}},
	{BotType: "google-extended", DNSSuffixes: []string{"googlebot.com", "google.com"}},
	{BotType: "bingbot", DNSSuffixes: []string{"search.msn.com"}},
	{BotType: "bingpreview", DNSSuffixes: []string{"search.msn.com"}},
	{BotType: "applebot", DNSSuffixes: []string{"applebot.apple.com"}},
	{BotType: "applebot-extended", DNSSuffixes: []string{"applebot.apple.com"}},
	{BotType: "yandexbot", DNSSuffixes: []string{"yandex.ru", "yandex.net", "yandex.com"}},
	{BotType: "baiduspider", DNSSuffixes: []string{"baidu.com", "baidu.jp"}},
	{BotType: "petalbot", DNSSuffixes: []string{"petalsearch.com"}},
	{BotType: "amazonbot", DNSSuffixes: []string{"crawl.amazonbot.amazon"}},
}

type Verifier struct {
	rules    map[string]rule
	resolver Resolver
	timeout  time.Duration
	cache    *expirable.LRU[string, Result]
	group    singleflight.Group
}

// New 配置中的规则按 bot_type 覆盖内置规则
func New(cfg config.IPVerify, resolver Resolver) *Verifier {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	v := &Verifier{
		rules:    make(map[string]rule),
		resolver: resolver,
		timeout:  timeout,
		cache:    expirable.NewLRU[string, Result](cacheSize, nil, cacheTTL),
	}
	for _, r := range append(append([]config.IPVerifyRule{}, defaultRules...), cfg.Rules...) {
		v.rules[strings.ToLower(r.BotType)] = rule{
			suffixes: r.DNSSuffixes,
			ranges:   NewRangeSet(r.CIDRs),
		}
	}
	logger.Log.Infof("IP校验规则加载完成: rules=%d", len(v.rules))
	return v
}

// Verify 先查公布网段，再做反向 DNS + 正向确认
func (v *Verifier) Verify(ctx context.Context, botType, ipStr string) Result {
	r, ok := v.rules[strings.ToLower(botType)]
	if !ok {
		return Result{}
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Result{}
	}

	key := botType + "|" + ipStr
	if res, ok := v.cache.Get(key); ok {
		return res
	}

	out, _, _ := v.group.Do(key, func() (interface{}, error) {
		res, cacheable := v.verify(ctx, r, ip)
		if cacheable {
			v.cache.Add(key, res)
		}
		return res, nil
	})
	return out.(Result)
}

func (v *Verifier) verify(ctx context.Context, r rule, ip net.IP) (Result, bool) {
	if r.ranges.Len() > 0 && r.ranges.Contains(ip) {
		return verdict(true, MethodIPRange), true
	}
	if len(r.suffixes) == 0 {
		return verdict(false, MethodIPRange), true
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	names, err := v.resolver.LookupAddr(ctx, ip.String())
	if err != nil {
		if notFound(err) {
			return verdict(false, MethodReverseDNS), true
		}
		logger.Log.Warnf("反向DNS查询失败: ip=%s, error=%v", ip, err)
		return Result{}, false
	}

	for _, name := range names {
		host := strings.TrimSuffix(strings.ToLower(name), ".")
		if !matchSuffix(host, r.suffixes) {
			continue
		}
		addrs, err := v.resolver.LookupIPAddr(ctx, host)
		if err != nil {
			if notFound(err) {
				continue
			}
			logger.Log.Warnf("正向DNS确认失败: host=%s, error=%v", host, err)
			return Result{}, false
		}
		for _, a := range addrs {
			if a.IP.Equal(ip) {
				return verdict(true, MethodReverseDNS), true
			}
		}
	}
	return verdict(false, MethodReverseDNS), true
}

func matchSuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimPrefix(s, "."))
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func notFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

func verdict(ok bool, method string) Result {
	return Result{Verified: &ok, Method: method}
}
