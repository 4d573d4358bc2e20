package referral

import (
	"testing"

	"go-botlens/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		page    string
		want    models.Referral
		ok      bool
	}{
		{
			name:    "chatgpt referer",
			referer: "https://chatgpt.com/",
			page:    "https://example.com/post",
			want:    models.Referral{Platform: "chatgpt", Source: "chatgpt.com", Medium: "referral"},
			ok:      true,
		},
		{
			name:    "perplexity 带查询词",
			referer: "https://www.perplexity.ai/search?q=best+go+libraries",
			page:    "https://example.com/post",
			want:    models.Referral{Platform: "perplexity", SearchQuery: "best go libraries", Source: "www.perplexity.ai", Medium: "referral"},
			ok:      true,
		},
		{
			name: "utm_source",
			page: "https://example.com/post?utm_source=chatgpt.com&utm_medium=ai",
			want: models.Referral{Platform: "chatgpt", Source: "chatgpt.com", Medium: "ai"},
			ok:   true,
		},
		{
			name:    "referer 优先于 utm",
			referer: "https://claude.ai/chat/abc",
			page:    "https://example.com/post?utm_source=perplexity",
			want:    models.Referral{Platform: "claude", Source: "claude.ai", Medium: "referral"},
			ok:      true,
		},
		{
			name:    "普通搜索引擎",
			referer: "https://www.google.com/search?q=x",
			page:    "https://example.com/post",
		},
		{
			name:    "相似域名",
			referer: "https://notchatgpt.com/",
			page:    "/post",
		},
		{name: "空"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.referer, tt.page)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatforms(t *testing.T) {
	assert.Contains(t, Platforms(), "chatgpt")
	assert.Contains(t, Platforms(), "perplexity")
}
