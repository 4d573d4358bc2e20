package models

import (
	"time"
)

// 流量类型
const (
	TrafficBotCrawl      = "bot_crawl"
	TrafficCitationClick = "citation_click"
)

// 检测方式
const (
	MethodSignature       = "signature"
	MethodCustomSignature = "custom_signature"
	MethodHeuristic       = "heuristic"
)

// 签名来源
const (
	SourceBuiltin = "builtin"
	SourceCustom  = "custom"
)

// Signature 已知自动化访问者的 UA 特征
type Signature struct {
	Pattern  string
	Name     string // 展示名
	Type     string // 规范化的爬虫类型
	Vendor   string
	Category string
	Priority int
	Color    string
	Source   string
}

// DetectionResult 单次分类结果，不直接落库
type DetectionResult struct {
	IsBot      bool    `json:"is_bot"`
	BotType    string  `json:"bot_type,omitempty"`
	BotName    string  `json:"bot_name,omitempty"`
	Method     string  `json:"method,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Referral AI 平台引用点击的来源信息
type Referral struct {
	Platform    string `json:"platform"`
	SearchQuery string `json:"search_query,omitempty"`
	Source      string `json:"source,omitempty"`
	Medium      string `json:"medium,omitempty"`
}

// ContentMetrics 被访问内容在访问时刻的快照
type ContentMetrics struct {
	WordCount     int        `json:"word_count"`
	HeadingCount  int        `json:"heading_count"`
	ImageCount    int        `json:"image_count"`
	HasSchema     bool       `json:"has_schema"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
	FreshnessDays *int       `json:"freshness_days,omitempty"`
}

// VisitEvent 一次入站访问，Recorder 的输入
type VisitEvent struct {
	ID             string
	BotType        string
	BotName        string
	UserAgent      string
	URL            string
	ContentID      string
	CacheStatus    string
	StatusCode     int
	ResponseTimeMS int64
	RemoteAddr     string
	ForwardedFor   string
	RealIP         string
	ClientIP       string
	TrafficType    string
	Referral       *Referral
	Detection      DetectionResult
	Timestamp      time.Time
}

// VisitRecord 每条被接受的访问对应一行，写入后不再修改
type VisitRecord struct {
	ID              int64           `json:"id"`
	EventID         string          `json:"event_id"`
	UserAgent       string          `json:"user_agent"`
	BotType         string          `json:"bot_type"`
	BotName         string          `json:"bot_name"`
	URL             string          `json:"url"`
	ContentID       string          `json:"content_id,omitempty"`
	CacheStatus     string          `json:"cache_status,omitempty"`
	StatusCode      int             `json:"status_code,omitempty"`
	ResponseTimeMS  int64           `json:"response_time_ms,omitempty"`
	ClientIP        string          `json:"client_ip"`
	IPVerified      *bool           `json:"ip_verified"`
	IPVerifyMethod  string          `json:"ip_verify_method,omitempty"`
	CountryCode     string          `json:"country_code,omitempty"`
	TrafficType     string          `json:"traffic_type"`
	Referral        *Referral       `json:"referral,omitempty"`
	DetectionMethod string          `json:"detection_method,omitempty"`
	Confidence      float64         `json:"confidence"`
	Content         *ContentMetrics `json:"content,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// FingerprintRecord (UA, IP) 组合的滚动行为画像
type FingerprintRecord struct {
	Key                   string
	UserAgent             string
	IP                    string
	FirstSeen             time.Time
	LastSeen              time.Time
	VisitCount            int
	RequestIntervalAvg    *float64
	RequestIntervalStddev *float64
	PagesPerSessionAvg    float64
	SessionDurationAvg    float64
	UniquePathsRatio      float64
	RobotsTxtChecked      bool
	RespectsRobotsTxt     *bool
	Classification        string
}
