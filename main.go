package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-botlens/pkg/alerter"
	"go-botlens/pkg/config"
	"go-botlens/pkg/consumer"
	"go-botlens/pkg/content"
	"go-botlens/pkg/dedup"
	"go-botlens/pkg/detection"
	"go-botlens/pkg/fingerprint"
	"go-botlens/pkg/geo"
	"go-botlens/pkg/heuristic"
	"go-botlens/pkg/ipverify"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/recorder"
	"go-botlens/pkg/reporting"
	"go-botlens/pkg/signature"
	"go-botlens/pkg/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认 config/config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "初始化配置失败:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "初始化日志失败:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("开始启动爬虫识别服务...")
	logger.Log.Infof("Kafka配置: brokers=%v, topic=%s, group_id=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 指标服务
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("指标服务启动失败: %v", err)
		}
	}()

	// 存储层
	store, err := storage.NewMySQLStore(cfg)
	if err != nil {
		logger.Log.Fatal("初始化存储层失败:", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Log.Fatal("初始化数据表失败:", err)
	}
	logger.Log.Info("存储层初始化成功")

	detector, registry := buildDetector(cfg)
	if registry != nil {
		watchCustomSignatures(*configPath, registry)
	}

	deps := recorder.Deps{
		Store:    store,
		Verifier: ipverify.New(cfg.IPVerify, nil),
		Content:  content.NewSnapshotter(content.NewMySQLSource(store.DB())),
		Fingerprints: fingerprint.NewAggregator(store, fingerprint.Options{
			SessionGap:     cfg.Tracking.SessionGap,
			HistoryLimit:   cfg.Tracking.HistoryLimit,
			RobotsDisallow: cfg.Tracking.RobotsDisallow,
		}),
	}

	// GeoIP 不可用时国家字段留空
	if cfg.GeoIP.CityPath != "" {
		resolver, err := geo.Open(cfg.GeoIP.CityPath, cfg.GeoIP.CacheSize, cfg.GeoIP.CacheTTL)
		if err != nil {
			logger.Log.Warnf("GeoIP不可用: %v", err)
		} else {
			defer resolver.Close()
			deps.Geo = resolver
		}
	}

	switch cfg.Tracking.DedupBackend {
	case "redis":
		pool := dedup.NewPool(cfg)
		defer pool.Close()
		deps.Dedup = dedup.NewRedisDeduplicator(pool, cfg.Tracking.DedupWindow, cfg.Tracking.DedupRetention)
	default:
		deps.Dedup = dedup.NewStoreDeduplicator(store, cfg.Tracking.DedupWindow)
	}
	logger.Log.Infof("引用去重: backend=%s, window=%s", cfg.Tracking.DedupBackend, cfg.Tracking.DedupWindow)

	notifier := alerter.NewAlerter(cfg.Webhook.NotifyURL, cfg.Webhook.Timeout, cfg.Alert.Cooldown)
	defer notifier.Close()
	deps.Notifier = notifier

	var sinks []reporting.Sink
	if cfg.InfluxDB.URL != "" {
		influx := reporting.NewInfluxSink(cfg)
		defer influx.Close()
		sinks = append(sinks, influx)
	}
	if cfg.Webhook.ReportURL != "" {
		sinks = append(sinks, reporting.NewWebhookSink(cfg.Webhook.ReportURL, cfg.Webhook.Timeout))
	}
	// 上报在后台发送，写入路径不等待下游
	reporter := reporting.NewAsync(reporting.New(sinks...), cfg.Webhook.ReportQueue, cfg.Webhook.Timeout)
	defer reporter.Close()
	deps.Reporter = reporter

	rec := recorder.New(deps, recorder.Options{
		TrustProxyHeaders: cfg.Tracking.TrustProxyHeaders,
		DelegateTimeout:   cfg.Webhook.Timeout,
	})

	kafkaConsumer, err := consumer.NewConsumer(cfg, consumer.NewHandler(detector, rec, store, cfg.Tracking.TrustProxyHeaders))
	if err != nil {
		logger.Log.Fatal("初始化Kafka消费者失败:", err)
	}
	defer kafkaConsumer.Close()
	logger.Log.Info("Kafka消费者初始化成功")

	logger.Log.Info("服务启动完成，等待消息...")
	if err := kafkaConsumer.Start(ctx, cfg.Kafka.Topic); err != nil {
		logger.Log.Errorf("Kafka消费异常退出: %v", err)
	}

	logger.Log.Info("开始优雅退出")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}

// buildDetector 签名表加载失败时退化为内置签名兼容模式
func buildDetector(cfg *config.Config) (detection.Detector, *signature.Registry) {
	registry, err := signature.NewRegistry(signature.Builtin(), signature.FromConfig(cfg.Detection.CustomSignatures))
	if err != nil {
		logger.Log.Errorf("加载签名表失败: %v", err)
		return detection.New(nil, nil), nil
	}
	logger.Log.Infof("签名表加载完成: builtin=%d, custom=%d", len(registry.Builtins()), len(registry.Customs()))
	return detection.New(registry, heuristic.New(cfg.Detection.Heuristic)), registry
}

// watchCustomSignatures 配置文件变更时热更新自定义签名
func watchCustomSignatures(path string, registry *signature.Registry) {
	config.SetErrorHandler(func(file string, err error) {
		logger.Log.Errorf("配置热加载失败，保留旧配置: file=%s, error=%v", file, err)
	})
	err := config.Watch(path, func(cfg *config.Config) {
		n := registry.SetCustom(signature.FromConfig(cfg.Detection.CustomSignatures))
		logger.Log.Infof("自定义签名已重新加载: custom=%d", n)
	})
	if err != nil {
		logger.Log.Warnf("配置热加载未启用: %v", err)
	}
}
