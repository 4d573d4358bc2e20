package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	InfluxDB struct {
		URL    string
		Token  string
		Org    string
		Bucket string
	}
	MySQL struct {
		DSN     string
		MaxIdle int `mapstructure:"max_idle"`
		MaxOpen int `mapstructure:"max_open"`
	}
	Kafka struct {
		Brokers []string
		Topic   string
		GroupID string `mapstructure:"group_id"`
		Version string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	GeoIP struct {
		CityPath  string        `mapstructure:"city_path"`
		CacheSize int           `mapstructure:"cache_size"`
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	}
	Webhook struct {
		NotifyURL   string        `mapstructure:"notify_url"`
		ReportURL   string        `mapstructure:"report_url"`
		ReportQueue int           `mapstructure:"report_queue"`
		Timeout     time.Duration `mapstructure:"timeout"`
	}
	Log     Log
	Metrics struct {
		Addr string
	}
	Alert struct {
		Cooldown time.Duration
	}
	Detection Detection
	Tracking  Tracking
	IPVerify  IPVerify `mapstructure:"ip_verify"`
}

type Log struct {
	Level  string
	Path   string
	Stdout bool
}

// Detection 检测流水线配置
type Detection struct {
	CustomSignatures []CustomSignature `mapstructure:"custom_signatures"`
	Heuristic        Heuristic
}

// CustomSignature 运营方自定义的 UA 签名
type CustomSignature struct {
	Pattern  string
	Name     string
	Type     string
	Vendor   string
	Category string
	Priority int
	Color    string
}

// Heuristic 启发式分类器阈值与权重，全部可调
type Heuristic struct {
	Threshold        float64
	MaxConfidence    float64 `mapstructure:"max_confidence"`
	MinVisits        int     `mapstructure:"min_visits"`
	AutomationToken  float64 `mapstructure:"automation_token"`
	ContactURL       float64 `mapstructure:"contact_url"`
	MissingMozilla   float64 `mapstructure:"missing_mozilla"`
	ShortAgent       float64 `mapstructure:"short_agent"`
	RegularInterval  float64 `mapstructure:"regular_interval"`
	DeepSession      float64 `mapstructure:"deep_session"`
	UniquePaths      float64 `mapstructure:"unique_paths"`
	StddevCeiling    float64 `mapstructure:"stddev_ceiling"`
	PagesPerSession  float64 `mapstructure:"pages_per_session"`
	UniquePathsFloor float64 `mapstructure:"unique_paths_floor"`
}

// Tracking 访问记录与指纹聚合相关配置
type Tracking struct {
	SessionGap        time.Duration `mapstructure:"session_gap"`
	DedupWindow       time.Duration `mapstructure:"dedup_window"`
	DedupBackend      string        `mapstructure:"dedup_backend"`
	DedupRetention    time.Duration `mapstructure:"dedup_retention"`
	HistoryLimit      int           `mapstructure:"history_limit"`
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers"`
	RobotsDisallow    []string      `mapstructure:"robots_disallow"`
}

// IPVerify 爬虫 IP 归属校验规则
type IPVerify struct {
	Timeout time.Duration
	Rules   []IPVerifyRule
}

type IPVerifyRule struct {
	BotType     string   `mapstructure:"bot_type"`
	DNSSuffixes []string `mapstructure:"dns_suffixes"`
	CIDRs       []string `mapstructure:"cidrs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("kafka.topic", "beats")
	v.SetDefault("kafka.group_id", "botlens")
	v.SetDefault("kafka.version", "2.1.0")
	v.SetDefault("mysql.max_idle", 5)
	v.SetDefault("mysql.max_open", 20)
	v.SetDefault("geoip.cache_size", 10000)
	v.SetDefault("geoip.cache_ttl", 24*time.Hour)
	v.SetDefault("webhook.timeout", 5*time.Second)
	v.SetDefault("webhook.report_queue", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/botlens.log")
	v.SetDefault("metrics.addr", ":2112")
	v.SetDefault("alert.cooldown", time.Hour)

	v.SetDefault("detection.heuristic.threshold", 0.5)
	v.SetDefault("detection.heuristic.max_confidence", 0.95)
	v.SetDefault("detection.heuristic.min_visits", 5)
	v.SetDefault("detection.heuristic.automation_token", 0.6)
	v.SetDefault("detection.heuristic.contact_url", 0.3)
	v.SetDefault("detection.heuristic.missing_mozilla", 0.2)
	v.SetDefault("detection.heuristic.short_agent", 0.2)
	v.SetDefault("detection.heuristic.regular_interval", 0.3)
	v.SetDefault("detection.heuristic.deep_session", 0.2)
	v.SetDefault("detection.heuristic.unique_paths", 0.1)
	v.SetDefault("detection.heuristic.stddev_ceiling", 1.0)
	v.SetDefault("detection.heuristic.pages_per_session", 20)
	v.SetDefault("detection.heuristic.unique_paths_floor", 0.9)

	v.SetDefault("tracking.session_gap", 30*time.Minute)
	v.SetDefault("tracking.dedup_window", 30*time.Minute)
	v.SetDefault("tracking.dedup_backend", "store")
	v.SetDefault("tracking.dedup_retention", 24*time.Hour)
	v.SetDefault("tracking.history_limit", 100)

	v.SetDefault("ip_verify.timeout", 2*time.Second)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
	}
	v.SetEnvPrefix("BOTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load 读取配置文件，path 为空时按默认位置 config/config.yaml 查找
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return decode(v)
}

// Watch 配置文件变更后重新解析并回调，校验失败的新配置被丢弃
func Watch(path string, onChange func(*Config)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			onError(e.Name, err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// onError 配置包不依赖 logger，避免循环引用；由 main 替换
var onError = func(string, error) {}

// SetErrorHandler 设置热加载失败时的回调
func SetErrorHandler(fn func(file string, err error)) {
	onError = fn
}

// Validate 在加载阶段拒绝明显错误的配置
func (c *Config) Validate() error {
	if c.Tracking.SessionGap <= 0 {
		return fmt.Errorf("tracking.session_gap 必须大于0")
	}
	if c.Tracking.DedupWindow <= 0 {
		return fmt.Errorf("tracking.dedup_window 必须大于0")
	}
	switch c.Tracking.DedupBackend {
	case "store", "redis":
	default:
		return fmt.Errorf("未知的 tracking.dedup_backend: %q", c.Tracking.DedupBackend)
	}
	if c.Tracking.DedupBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("dedup_backend=redis 需要配置 redis.addr")
	}
	h := c.Detection.Heuristic
	if h.MaxConfidence <= 0 || h.MaxConfidence >= 1 {
		return fmt.Errorf("detection.heuristic.max_confidence 必须在 (0,1) 之间")
	}
	for i, sig := range c.Detection.CustomSignatures {
		if sig.Pattern == "" || sig.Name == "" {
			return fmt.Errorf("custom_signatures[%d] 缺少 pattern 或 name", i)
		}
		if _, err := regexp2.Compile(sig.Pattern, regexp2.IgnoreCase); err != nil {
			return fmt.Errorf("custom_signatures[%d] 正则无效 %q: %w", i, sig.Pattern, err)
		}
	}
	return nil
}
