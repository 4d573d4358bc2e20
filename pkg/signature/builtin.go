package signature

import "go-botlens/pkg/models"

// builtinTable 内置签名表，顺序即优先级：更具体的模式放在前面
var builtinTable = []models.Signature{
	// OpenAI
	{Pattern: `ChatGPT-User`, Name: "ChatGPT-User", Type: "chatgpt-user", Vendor: "OpenAI", Category: "ai_retrieval", Priority: 100, Color: "#10a37f"},
	{Pattern: `OAI-SearchBot`, Name: "OAI-SearchBot", Type: "oai-searchbot", Vendor: "OpenAI", Category: "ai_search", Priority: 100, Color: "#10a37f"},
	{Pattern: `GPTBot`, Name: "GPTBot", Type: "gptbot", Vendor: "OpenAI", Category: "ai_training", Priority: 100, Color: "#10a37f"},

	// Anthropic
	{Pattern: `Claude-User`, Name: "Claude-User", Type: "claude-user", Vendor: "Anthropic", Category: "ai_retrieval", Priority: 100, Color: "#d97757"},
	{Pattern: `Claude-SearchBot`, Name: "Claude-SearchBot", Type: "claude-searchbot", Vendor: "Anthropic", Category: "ai_search", Priority: 100, Color: "#d97757"},
	{Pattern: `ClaudeBot|Claude-Web|anthropic-ai`, Name: "ClaudeBot", Type: "claudebot", Vendor: "Anthropic", Category: "ai_training", Priority: 100, Color: "#d97757"},

	// Perplexity
	{Pattern: `Perplexity-User`, Name: "Perplexity-User", Type: "perplexity-user", Vendor: "Perplexity", Category: "ai_retrieval", Priority: 90, Color: "#20808d"},
	{Pattern: `PerplexityBot`, Name: "PerplexityBot", Type: "perplexitybot", Vendor: "Perplexity", Category: "ai_search", Priority: 90, Color: "#20808d"},

	// Google
	{Pattern: `Google-Extended`, Name: "Google-Extended", Type: "google-extended", Vendor: "Google", Category: "ai_training", Priority: 90, Color: "#4285f4"},
	{Pattern: `GoogleOther`, Name: "GoogleOther", Type: "googleother", Vendor: "Google", Category: "ai_training", Priority: 80, Color: "#4285f4"},
	{Pattern: `Googlebot-Image`, Name: "Googlebot-Image", Type: "googlebot-image", Vendor: "Google", Category: "search", Priority: 70, Color: "#4285f4"},
	{Pattern: `Googlebot`, Name: "Googlebot", Type: "googlebot", Vendor: "Google", Category: "search", Priority: 70, Color: "#4285f4"},

	// Microsoft
	{Pattern: `bingbot`, Name: "Bingbot", Type: "bingbot", Vendor: "Microsoft", Category: "search", Priority: 70, Color: "#008373"},
	{Pattern: `BingPreview`, Name: "BingPreview", Type: "bingpreview", Vendor: "Microsoft", Category: "preview", Priority: 60, Color: "#008373"},

	// Apple
	{Pattern: `Applebot-Extended`, Name: "Applebot-Extended", Type: "applebot-extended", Vendor: "Apple", Category: "ai_training", Priority: 80, Color: "#555555"},
	{Pattern: `Applebot`, Name: "Applebot", Type: "applebot", Vendor: "Apple", Category: "search", Priority: 70, Color: "#555555"},

	// Meta
	{Pattern: `meta-externalagent`, Name: "Meta-ExternalAgent", Type: "meta-externalagent", Vendor: "Meta", Category: "ai_training", Priority: 80, Color: "#0866ff"},
	{Pattern: `meta-externalfetcher`, Name: "Meta-ExternalFetcher", Type: "meta-externalfetcher", Vendor: "Meta", Category: "ai_retrieval", Priority: 80, Color: "#0866ff"},
	{Pattern: `facebookexternalhit|FacebookBot`, Name: "FacebookBot", Type: "facebookbot", Vendor: "Meta", Category: "social", Priority: 50, Color: "#0866ff"},

	// 其他 AI 厂商
	{Pattern: `Amazonbot`, Name: "Amazonbot", Type: "amazonbot", Vendor: "Amazon", Category: "ai_training", Priority: 80, Color: "#ff9900"},
	{Pattern: `Bytespider`, Name: "Bytespider", Type: "bytespider", Vendor: "ByteDance", Category: "ai_training", Priority: 80, Color: "#fe2c55"},
	{Pattern: `CCBot`, Name: "CCBot", Type: "ccbot", Vendor: "Common Crawl", Category: "ai_training", Priority: 80, Color: "#3b82f6"},
	{Pattern: `cohere-ai|cohere-training-data-crawler`, Name: "cohere-ai", Type: "cohere-ai", Vendor: "Cohere", Category: "ai_training", Priority: 80, Color: "#39594d"},
	{Pattern: `MistralAI-User`, Name: "MistralAI-User", Type: "mistralai-user", Vendor: "Mistral", Category: "ai_retrieval", Priority: 80, Color: "#fa520f"},
	{Pattern: `DuckAssistBot`, Name: "DuckAssistBot", Type: "duckassistbot", Vendor: "DuckDuckGo", Category: "ai_retrieval", Priority: 80, Color: "#de5833"},
	{Pattern: `YouBot`, Name: "YouBot", Type: "youbot", Vendor: "You.com", Category: "ai_search", Priority: 80, Color: "#7c3aed"},
	{Pattern: `AI2Bot`, Name: "AI2Bot", Type: "ai2bot", Vendor: "Allen Institute", Category: "ai_training", Priority: 70, Color: "#f0529c"},
	{Pattern: `Diffbot`, Name: "Diffbot", Type: "diffbot", Vendor: "Diffbot", Category: "ai_training", Priority: 70, Color: "#2b6cb0"},
	{Pattern: `PetalBot`, Name: "PetalBot", Type: "petalbot", Vendor: "Huawei", Category: "search", Priority: 60, Color: "#cf0a2c"},
	{Pattern: `Timpibot`, Name: "Timpibot", Type: "timpibot", Vendor: "Timpi", Category: "ai_training", Priority: 60, Color: "#6b7280"},

	// 搜索引擎与 SEO 工具
	{Pattern: `YandexBot`, Name: "YandexBot", Type: "yandexbot", Vendor: "Yandex", Category: "search", Priority: 60, Color: "#fc3f1d"},
	{Pattern: `Baiduspider`, Name: "Baiduspider", Type: "baiduspider", Vendor: "Baidu", Category: "search", Priority: 60, Color: "#2932e1"},
	{Pattern: `DuckDuckBot`, Name: "DuckDuckBot", Type: "duckduckbot", Vendor: "DuckDuckGo", Category: "search", Priority: 60, Color: "#de5833"},
	{Pattern: `AhrefsBot`, Name: "AhrefsBot", Type: "ahrefsbot", Vendor: "Ahrefs", Category: "seo", Priority: 40, Color: "#ff8800"},
	{Pattern: `SemrushBot`, Name: "SemrushBot", Type: "semrushbot", Vendor: "Semrush", Category: "seo", Priority: 40, Color: "#ff642d"},
	{Pattern: `MJ12bot`, Name: "MJ12bot", Type: "mj12bot", Vendor: "Majestic", Category: "seo", Priority: 40, Color: "#6b7280"},
}

// aliases 名称到规范类型的映射，键为小写
var aliases = map[string]string{
	"gpt bot":             "gptbot",
	"openai":              "gptbot",
	"chatgpt":             "chatgpt-user",
	"chatgpt user":        "chatgpt-user",
	"searchgpt":           "oai-searchbot",
	"claude":              "claudebot",
	"claude-web":          "claudebot",
	"anthropic":           "claudebot",
	"anthropic-ai":        "claudebot",
	"perplexity":          "perplexitybot",
	"bing":                "bingbot",
	"google":              "googlebot",
	"google extended":     "google-extended",
	"facebookexternalhit": "facebookbot",
	"meta ai":             "meta-externalagent",
	"common crawl":        "ccbot",
	"cohere":              "cohere-ai",
	"bytedance":           "bytespider",
	"tiktok":              "bytespider",
}

// Builtin 返回内置签名表的副本
func Builtin() []models.Signature {
	out := make([]models.Signature, len(builtinTable))
	copy(out, builtinTable)
	for i := range out {
		out[i].Source = models.SourceBuiltin
	}
	return out
}
