package heuristic

import (
	"regexp"
	"strings"
)

// automationTokens UA 中声明自动化身份的关键词，子串匹配
var automationTokens = []string{
	"crawler", "spider", "scraper", "crawl",
	"curl", "wget", "python", "go-http-client", "java/", "okhttp",
	"apache-httpclient", "axios", "node-fetch", "undici", "aiohttp",
	"httpx", "scrapy", "libwww", "headless", "phantomjs", "selenium",
	"puppeteer", "playwright", "httpclient", "fetcher", "preview",
}

// botToken "bot" 只在独立单词或产品标识 (xxxbot/1.0) 中算数，避免命中 CUBOT 这类机型名
var botToken = regexp.MustCompile(`(?i)\bbot\b|bot[\w.-]*/`)

// AutomationTokenRule UA 中出现自动化关键词
type AutomationTokenRule struct {
	Weight float64
	Tokens []string
	// Pattern 非空时额外按正则匹配
	Pattern *regexp.Regexp
}

func (r *AutomationTokenRule) Name() string { return "automation_token" }

func (r *AutomationTokenRule) Score(in Input) float64 {
	ua := strings.ToLower(in.UserAgent)
	for _, t := range r.Tokens {
		if strings.Contains(ua, t) {
			return r.Weight
		}
	}
	if r.Pattern != nil && r.Pattern.MatchString(in.UserAgent) {
		return r.Weight
	}
	return 0
}

// ContactURLRule 爬虫惯用在 UA 里留联系地址
type ContactURLRule struct {
	Weight float64
}

func (r *ContactURLRule) Name() string { return "contact_url" }

func (r *ContactURLRule) Score(in Input) float64 {
	ua := strings.ToLower(in.UserAgent)
	if strings.Contains(ua, "+http") || strings.Contains(ua, "http://") ||
		strings.Contains(ua, "https://") || strings.Contains(ua, "@") {
		return r.Weight
	}
	return 0
}

// MissingMozillaRule 几乎所有真实浏览器都带 Mozilla/ 前缀
type MissingMozillaRule struct {
	Weight float64
}

func (r *MissingMozillaRule) Name() string { return "missing_mozilla" }

func (r *MissingMozillaRule) Score(in Input) float64 {
	if in.UserAgent == "" {
		return 0
	}
	if !strings.Contains(strings.ToLower(in.UserAgent), "mozilla/") {
		return r.Weight
	}
	return 0
}

// ShortAgentRule UA 过短
type ShortAgentRule struct {
	Weight    float64
	MinLength int
}

func (r *ShortAgentRule) Name() string { return "short_agent" }

func (r *ShortAgentRule) Score(in Input) float64 {
	if in.UserAgent != "" && len(in.UserAgent) < r.MinLength {
		return r.Weight
	}
	return 0
}

func enoughHistory(in Input, minVisits int) bool {
	return in.Fingerprint != nil && in.Fingerprint.VisitCount >= minVisits
}

// RegularIntervalRule 请求间隔方差极低，节奏像定时任务
type RegularIntervalRule struct {
	Weight        float64
	MinVisits     int
	StddevCeiling float64
}

func (r *RegularIntervalRule) Name() string { return "regular_interval" }

func (r *RegularIntervalRule) Score(in Input) float64 {
	if !enoughHistory(in, r.MinVisits) || in.Fingerprint.RequestIntervalStddev == nil {
		return 0
	}
	if *in.Fingerprint.RequestIntervalStddev <= r.StddevCeiling {
		return r.Weight
	}
	return 0
}

// DeepSessionRule 单次会话页数过多
type DeepSessionRule struct {
	Weight          float64
	MinVisits       int
	PagesPerSession float64
}

func (r *DeepSessionRule) Name() string { return "deep_session" }

func (r *DeepSessionRule) Score(in Input) float64 {
	if !enoughHistory(in, r.MinVisits) {
		return 0
	}
	if in.Fingerprint.PagesPerSessionAvg >= r.PagesPerSession {
		return r.Weight
	}
	return 0
}

// UniquePathsRule 几乎不重复访问同一路径，遍历式抓取
type UniquePathsRule struct {
	Weight    float64
	MinVisits int
	Floor     float64
}

func (r *UniquePathsRule) Name() string { return "unique_paths" }

func (r *UniquePathsRule) Score(in Input) float64 {
	if !enoughHistory(in, r.MinVisits) {
		return 0
	}
	if in.Fingerprint.UniquePathsRatio >= r.Floor {
		return r.Weight
	}
	return 0
}
