package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-botlens/pkg/detection"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
	"go-botlens/pkg/recorder"
	"go-botlens/pkg/referral"
	"go-botlens/pkg/storage"
)

type Recorder interface {
	Record(ctx context.Context, ev *models.VisitEvent) (*models.VisitRecord, error)
}

// FingerprintReader 读取已有画像，给启发式分类器提供行为信号
type FingerprintReader interface {
	GetFingerprint(ctx context.Context, key string) (*models.FingerprintRecord, error)
}

// Handler 单条消息的处理逻辑，与 Kafka 无关
type Handler struct {
	detector          detection.Detector
	recorder          Recorder
	fingerprints      FingerprintReader
	trustProxyHeaders bool
}

func NewHandler(detector detection.Detector, rec Recorder, fingerprints FingerprintReader, trustProxyHeaders bool) *Handler {
	return &Handler{
		detector:          detector,
		recorder:          rec,
		fingerprints:      fingerprints,
		trustProxyHeaders: trustProxyHeaders,
	}
}

// Process 解析、分类并记录一条访问。返回的 VisitRecord 为 nil 表示被跳过或拒绝
func (h *Handler) Process(ctx context.Context, raw []byte) (*models.VisitRecord, error) {
	metrics.EventsConsumed.Inc()

	var packet PacketData
	if err := json.Unmarshal(raw, &packet); err != nil {
		return nil, fmt.Errorf("解析消息失败: %w", err)
	}
	if !packet.normalize() {
		logger.Log.Warnf("数据不完整: client_ip=%s, url=%s", packet.ClientIP, packet.URLFull)
		return nil, nil
	}

	headers := packet.HTTP.Request.Headers
	ev := &models.VisitEvent{
		UserAgent:      packet.UserAgent,
		URL:            packet.URLFull,
		ContentID:      packet.HTTP.Response.Headers.XContentID,
		CacheStatus:    packet.HTTP.Response.Headers.XCache,
		StatusCode:     packet.HTTP.Response.StatusCode,
		ResponseTimeMS: time.Duration(packet.Event.Duration).Milliseconds(),
		RemoteAddr:     packet.ClientIP,
		ForwardedFor:   headers.XForwardedFor,
		RealIP:         headers.XRealIP,
		Timestamp:      packet.Timestamp,
	}
	ev.ClientIP = recorder.ClientIP(ev, h.trustProxyHeaders)

	result := h.detector.DetectWithSignals(ev.UserAgent, h.priorFingerprint(ctx, ev.UserAgent, ev.ClientIP))
	switch {
	case result.IsBot:
		ev.TrafficType = models.TrafficBotCrawl
		ev.BotType = result.BotType
		ev.BotName = result.BotName
		ev.Detection = result
	default:
		ref, ok := referral.Detect(headers.Referer, packet.URLFull)
		if !ok {
			return nil, nil
		}
		ev.TrafficType = models.TrafficCitationClick
		ev.BotType = ref.Platform
		ev.BotName = ref.Platform
		ev.Referral = &ref
	}

	rec, err := h.recorder.Record(ctx, ev)
	if err != nil {
		if errors.Is(err, recorder.ErrRejected) {
			logger.Log.Debugf("访问未记录: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (h *Handler) priorFingerprint(ctx context.Context, userAgent, ip string) *models.FingerprintRecord {
	if h.fingerprints == nil || userAgent == "" {
		return nil
	}
	fp, err := h.fingerprints.GetFingerprint(ctx, storage.FingerprintKey(userAgent, ip))
	if err != nil {
		logger.Log.Warnf("读取指纹失败: client_ip=%s, error=%v", ip, err)
		return nil
	}
	return fp
}
