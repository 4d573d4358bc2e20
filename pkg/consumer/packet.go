package consumer

import (
	"time"
)

// PacketData packetbeat 输出到 Kafka 的 HTTP 事件
type PacketData struct {
	Timestamp time.Time `json:"@timestamp"`
	Metadata  struct {
		Beat    string `json:"beat"`
		Type    string `json:"type"`
		Version string `json:"version"`
	} `json:"@metadata"`
	Type   string `json:"type"`
	Method string `json:"method"`
	URL    struct {
		Full string `json:"full"`
		Path string `json:"path"`
	} `json:"url"`
	Client struct {
		IP   string `json:"ip"`
		Port int    `json:"port"`
	} `json:"client"`
	Related struct {
		IP []string `json:"ip"`
	} `json:"related"`
	Event struct {
		Duration int64 `json:"duration"` // 纳秒
	} `json:"event"`
	HTTP struct {
		Response struct {
			StatusCode int `json:"status_code"`
			Headers    struct {
				XCache     string `json:"x_cache"`
				XContentID string `json:"x_content_id"`
			} `json:"headers"`
		} `json:"response"`
		Request struct {
			Headers struct {
				UserAgent     string `json:"user_agent"`
				Referer       string `json:"referer"`
				XForwardedFor string `json:"x_forwarded_for"`
				XRealIP       string `json:"x_real_ip"`
			} `json:"headers"`
		} `json:"request"`
	} `json:"http"`

	// 兼容字段，由 normalize 填充
	ClientIP  string `json:"-"`
	URLFull   string `json:"-"`
	UserAgent string `json:"-"`
}

// normalize 填充兼容字段，返回数据是否完整
func (p *PacketData) normalize() bool {
	if p.ClientIP == "" {
		p.ClientIP = p.Client.IP
	}
	if p.ClientIP == "" && len(p.Related.IP) > 0 {
		// related.ip 最后一个是客户端
		p.ClientIP = p.Related.IP[len(p.Related.IP)-1]
	}
	if p.URLFull == "" {
		p.URLFull = p.URL.Full
	}
	if p.URLFull == "" {
		p.URLFull = p.URL.Path
	}
	if p.UserAgent == "" {
		p.UserAgent = p.HTTP.Request.Headers.UserAgent
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	return p.ClientIP != "" && p.URLFull != ""
}
