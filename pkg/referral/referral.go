package referral

import (
	"net/url"
	"strings"

	"go-botlens/pkg/models"
)

const mediumReferral = "referral"

type platform struct {
	slug  string
	hosts []string
	utm   []string
}

// AI 助手的引用来源，host 按后缀匹配
var platforms = []platform{
	{slug: "chatgpt", hosts: []string{"chatgpt.com", "chat.openai.com"}, utm: []string{"chatgpt.com", "chatgpt", "openai"}},
	{slug: "perplexity", hosts: []string{"perplexity.ai"}, utm: []string{"perplexity", "perplexity.ai"}},
	{slug: "claude", hosts: []string{"claude.ai"}, utm: []string{"claude", "claude.ai"}},
	{slug: "gemini", hosts: []string{"gemini.google.com", "bard.google.com"}, utm: []string{"gemini", "bard"}},
	{slug: "copilot", hosts: []string{"copilot.microsoft.com", "copilot.cloud.microsoft"}, utm: []string{"copilot"}},
	{slug: "you", hosts: []string{"you.com"}, utm: []string{"you.com"}},
	{slug: "phind", hosts: []string{"phind.com"}, utm: []string{"phind"}},
	{slug: "deepseek", hosts: []string{"chat.deepseek.com"}, utm: []string{"deepseek"}},
	{slug: "meta-ai", hosts: []string{"meta.ai"}, utm: []string{"meta.ai", "meta-ai"}},
	{slug: "grok", hosts: []string{"grok.com"}, utm: []string{"grok"}},
	{slug: "mistral", hosts: []string{"chat.mistral.ai"}, utm: []string{"mistral", "lechat"}},
}

// Platforms 返回全部已知平台标识
func Platforms() []string {
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = p.slug
	}
	return out
}

// Detect 根据 Referer 或落地页 utm_source 判断是否来自 AI 平台的引用点击
func Detect(referer, pageURL string) (models.Referral, bool) {
	var utmSource, utmMedium string
	if u, err := url.Parse(pageURL); err == nil {
		q := u.Query()
		utmSource = strings.ToLower(strings.TrimSpace(q.Get("utm_source")))
		utmMedium = strings.TrimSpace(q.Get("utm_medium"))
	}
	medium := mediumReferral
	if utmMedium != "" {
		medium = utmMedium
	}

	if ref, err := url.Parse(referer); err == nil && ref.Host != "" {
		host := strings.ToLower(ref.Hostname())
		for _, p := range platforms {
			if matchHost(host, p.hosts) {
				return models.Referral{
					Platform:    p.slug,
					SearchQuery: searchQuery(ref.Query()),
					Source:      host,
					Medium:      medium,
				}, true
			}
		}
	}

	if utmSource != "" {
		for _, p := range platforms {
			for _, s := range p.utm {
				if utmSource == s {
					return models.Referral{Platform: p.slug, Source: utmSource, Medium: medium}, true
				}
			}
		}
	}
	return models.Referral{}, false
}

func matchHost(host string, hosts []string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func searchQuery(q url.Values) string {
	for _, k := range []string{"q", "query"} {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}
