package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-botlens/pkg/alerter"
	"go-botlens/pkg/dedup"
	"go-botlens/pkg/ipverify"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
	"go-botlens/pkg/storage"

	"github.com/google/uuid"
)

const (
	ReasonInvalid   = "invalid"
	ReasonDuplicate = "duplicate"

	defaultDelegateTimeout = 5 * time.Second
)

// ErrRejected 事件被拒绝（字段缺失或重复引用），调用方可用 errors.Is 判断
var ErrRejected = errors.New("访问事件被拒绝")

type RejectedError struct {
	Reason string
	Detail string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("访问事件被拒绝: reason=%s, %s", e.Reason, e.Detail)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason, detail string) error {
	metrics.VisitsRejected.WithLabelValues(reason).Inc()
	return &RejectedError{Reason: reason, Detail: detail}
}

type GeoResolver interface {
	Lookup(ip string) (string, bool)
}

type IPVerifier interface {
	Verify(ctx context.Context, botType, ip string) ipverify.Result
}

type ContentSnapshotter interface {
	Snapshot(ctx context.Context, contentID string) (*models.ContentMetrics, error)
}

type Notifier interface {
	NotifyNewBot(ctx context.Context, info alerter.NewBotInfo) error
}

type FingerprintUpdater interface {
	Update(ctx context.Context, rec *models.VisitRecord) error
}

// Reporter 实现方不能阻塞写入路径，见 reporting.AsyncReporter
type Reporter interface {
	Report(ctx context.Context, rec *models.VisitRecord)
}

// Deps Store 必填，其余为 nil 时跳过对应步骤
type Deps struct {
	Store        storage.Store
	Geo          GeoResolver
	Verifier     IPVerifier
	Dedup        dedup.Deduplicator
	Content      ContentSnapshotter
	Notifier     Notifier
	Fingerprints FingerprintUpdater
	Reporter     Reporter
}

type Options struct {
	TrustProxyHeaders bool
	DelegateTimeout   time.Duration
}

// Recorder 访问写入入口：校验、补全、去重、落库，然后触发通知、指纹聚合与上报
type Recorder struct {
	deps          Deps
	opts          Options
	citationLocks *keyedMutex
	now           func() time.Time
	newID         func() string
}

func New(deps Deps, opts Options) *Recorder {
	if opts.DelegateTimeout <= 0 {
		opts.DelegateTimeout = defaultDelegateTimeout
	}
	return &Recorder{
		deps:          deps,
		opts:          opts,
		citationLocks: newKeyedMutex(),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Record 写入一次访问。存储失败时返回错误且不触发任何后续动作
func (r *Recorder) Record(ctx context.Context, ev *models.VisitEvent) (*models.VisitRecord, error) {
	if ev.BotType == "" || ev.URL == "" {
		return nil, reject(ReasonInvalid, "bot_type 和 url 不能为空")
	}
	trafficType := ev.TrafficType
	if trafficType == "" {
		trafficType = models.TrafficBotCrawl
	}
	if trafficType != models.TrafficBotCrawl && trafficType != models.TrafficCitationClick {
		return nil, reject(ReasonInvalid, "未知的 traffic_type: "+trafficType)
	}

	rec := r.buildRecord(ev, trafficType)

	if r.deps.Geo != nil && rec.ClientIP != "" {
		if code, ok := r.deps.Geo.Lookup(rec.ClientIP); ok {
			rec.CountryCode = code
		}
	}

	if r.deps.Verifier != nil && rec.ClientIP != "" && trafficType == models.TrafficBotCrawl {
		vctx, cancel := context.WithTimeout(ctx, r.opts.DelegateTimeout)
		res := r.deps.Verifier.Verify(vctx, rec.BotType, rec.ClientIP)
		cancel()
		rec.IPVerified = res.Verified
		rec.IPVerifyMethod = res.Method
	}

	// 同一 (平台, IP) 的去重检查到落库之间串行
	unlock := func() {}
	claimed := false
	var platform string
	if trafficType == models.TrafficCitationClick && r.deps.Dedup != nil {
		platform = rec.Referral.Platform
		unlock = r.citationLocks.Lock(platform + "|" + rec.ClientIP)

		dup, err := r.deps.Dedup.IsDuplicate(ctx, platform, rec.ClientIP, rec.Timestamp)
		switch {
		case err != nil:
			metrics.DelegateFailures.WithLabelValues("dedup").Inc()
			logger.Log.Warnf("引用去重检查失败，按非重复处理: platform=%s, client_ip=%s, error=%v", platform, rec.ClientIP, err)
		case dup:
			unlock()
			logger.Log.Debugf("重复的引用点击: platform=%s, client_ip=%s", platform, rec.ClientIP)
			return nil, reject(ReasonDuplicate, fmt.Sprintf("platform=%s, client_ip=%s", platform, rec.ClientIP))
		default:
			claimed = true
		}
	}

	if r.deps.Content != nil && rec.ContentID != "" {
		cctx, cancel := context.WithTimeout(ctx, r.opts.DelegateTimeout)
		content, err := r.deps.Content.Snapshot(cctx, rec.ContentID)
		cancel()
		if err != nil {
			metrics.DelegateFailures.WithLabelValues("content").Inc()
			logger.Log.Warnf("内容快照失败: content_id=%s, error=%v", rec.ContentID, err)
		} else {
			rec.Content = content
		}
	}

	id, err := r.deps.Store.InsertVisit(ctx, rec)
	if err != nil {
		if claimed {
			if ferr := r.deps.Dedup.Forget(ctx, platform, rec.ClientIP); ferr != nil {
				logger.Log.Warnf("释放引用去重标记失败: platform=%s, client_ip=%s, error=%v", platform, rec.ClientIP, ferr)
			}
		}
		unlock()
		return nil, fmt.Errorf("保存访问记录失败: %w", err)
	}
	unlock()
	rec.ID = id
	metrics.VisitsRecorded.WithLabelValues(trafficType).Inc()

	if trafficType == models.TrafficBotCrawl {
		r.notifyIfNew(ctx, rec)
	}

	if r.deps.Fingerprints != nil {
		if err := r.deps.Fingerprints.Update(ctx, rec); err != nil {
			metrics.DelegateFailures.WithLabelValues("fingerprint").Inc()
			logger.Log.Errorf("更新指纹失败: client_ip=%s, bot_type=%s, error=%v", rec.ClientIP, rec.BotType, err)
		}
	}

	if r.deps.Reporter != nil {
		r.deps.Reporter.Report(ctx, rec)
	}

	logger.Log.Debugf("访问已记录: id=%d, bot_type=%s, traffic_type=%s, url=%s, client_ip=%s",
		rec.ID, rec.BotType, rec.TrafficType, rec.URL, rec.ClientIP)
	return rec, nil
}

func (r *Recorder) buildRecord(ev *models.VisitEvent, trafficType string) *models.VisitRecord {
	id := ev.ID
	if id == "" {
		id = r.newID()
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	rec := &models.VisitRecord{
		EventID:        id,
		UserAgent:      ev.UserAgent,
		BotType:        ev.BotType,
		BotName:        ev.BotName,
		URL:            ev.URL,
		ContentID:      ev.ContentID,
		CacheStatus:    ev.CacheStatus,
		StatusCode:     ev.StatusCode,
		ResponseTimeMS: ev.ResponseTimeMS,
		ClientIP:       ClientIP(ev, r.opts.TrustProxyHeaders),
		TrafficType:    trafficType,
		Timestamp:      ts,
	}
	if rec.BotName == "" {
		rec.BotName = ev.Detection.BotName
	}
	if ev.Detection.IsBot {
		rec.DetectionMethod = ev.Detection.Method
		rec.Confidence = ev.Detection.Confidence
	}
	if ev.Referral != nil {
		ref := *ev.Referral
		rec.Referral = &ref
	}
	// 引用点击必须落库平台字段，去重按 referral_platform 查询
	if trafficType == models.TrafficCitationClick {
		if rec.Referral == nil {
			rec.Referral = &models.Referral{}
		}
		if rec.Referral.Platform == "" {
			rec.Referral.Platform = ev.BotType
		}
	}
	return rec
}

// notifyIfNew 该爬虫类型的第一条记录触发通知。计数在写入之后读取，并发首访时可能漏发或重复
func (r *Recorder) notifyIfNew(ctx context.Context, rec *models.VisitRecord) {
	if r.deps.Notifier == nil {
		return
	}
	n, err := r.deps.Store.CountVisitsByBotType(ctx, rec.BotType)
	if err != nil {
		logger.Log.Warnf("统计爬虫类型记录数失败: bot_type=%s, error=%v", rec.BotType, err)
		return
	}
	if n != 1 {
		return
	}

	nctx, cancel := context.WithTimeout(ctx, r.opts.DelegateTimeout)
	defer cancel()
	err = r.deps.Notifier.NotifyNewBot(nctx, alerter.NewBotInfo{
		BotType:    rec.BotType,
		BotName:    rec.BotName,
		UserAgent:  rec.UserAgent,
		URL:        rec.URL,
		ClientIP:   rec.ClientIP,
		Method:     rec.DetectionMethod,
		Confidence: rec.Confidence,
		FirstSeen:  rec.Timestamp,
	})
	if err != nil {
		metrics.DelegateFailures.WithLabelValues("notify").Inc()
		logger.Log.Warnf("新爬虫通知失败: bot_type=%s, error=%v", rec.BotType, err)
	}
}
