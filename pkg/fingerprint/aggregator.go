package fingerprint

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
	"go-botlens/pkg/storage"
)

const lockStripes = 64

// Options 聚合参数，会话间隔与引用去重窗口分开配置
type Options struct {
	SessionGap     time.Duration
	HistoryLimit   int
	RobotsDisallow []string
}

// Aggregator 维护每个 (UA, IP) 的行为画像。
//
// 每次访问都做一次"读-重算-写"。同一进程内按指纹键分段加锁；
// 多个进程同时更新同一指纹仍可能丢失一次更新，画像只作尽力而为的参考。
type Aggregator struct {
	store storage.Store
	opts  Options
	locks [lockStripes]sync.Mutex
}

func NewAggregator(store storage.Store, opts Options) *Aggregator {
	if opts.SessionGap <= 0 {
		opts.SessionGap = 30 * time.Minute
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &Aggregator{store: store, opts: opts}
}

func (a *Aggregator) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &a.locks[h.Sum32()%lockStripes]
}

// Update 用刚写入的访问记录刷新对应指纹
func (a *Aggregator) Update(ctx context.Context, rec *models.VisitRecord) error {
	start := time.Now()
	defer func() { metrics.FingerprintUpdateTime.Observe(time.Since(start).Seconds()) }()

	key := storage.FingerprintKey(rec.UserAgent, rec.ClientIP)
	mu := a.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	existing, err := a.store.GetFingerprint(ctx, key)
	if err != nil {
		return fmt.Errorf("读取指纹失败: %w", err)
	}

	if existing == nil {
		fp := a.firstVisit(key, rec)
		if err := a.store.InsertFingerprint(ctx, fp); err != nil {
			return fmt.Errorf("创建指纹失败: %w", err)
		}
		logger.Log.Debugf("新指纹: key=%s, client_ip=%s, classification=%s", key[:12], rec.ClientIP, rec.BotType)
		return nil
	}

	visits, err := a.store.RecentVisits(ctx, rec.UserAgent, rec.ClientIP, a.opts.HistoryLimit)
	if err != nil {
		return fmt.Errorf("读取访问历史失败: %w", err)
	}
	distinct, err := a.store.DistinctURLCount(ctx, rec.UserAgent, rec.ClientIP)
	if err != nil {
		return fmt.Errorf("统计不同路径失败: %w", err)
	}

	fp := a.recompute(existing, rec, visits, distinct)
	if err := a.store.UpdateFingerprint(ctx, fp); err != nil {
		return fmt.Errorf("更新指纹失败: %w", err)
	}
	return nil
}

func (a *Aggregator) firstVisit(key string, rec *models.VisitRecord) *models.FingerprintRecord {
	fp := &models.FingerprintRecord{
		Key:                key,
		UserAgent:          rec.UserAgent,
		IP:                 rec.ClientIP,
		FirstSeen:          rec.Timestamp,
		LastSeen:           rec.Timestamp,
		VisitCount:         1,
		PagesPerSessionAvg: 1,
		UniquePathsRatio:   1,
		Classification:     rec.BotType,
	}
	fp.RobotsTxtChecked, fp.RespectsRobotsTxt = a.robotsState(fp, []models.VisitRecord{*rec})
	return fp
}

// recompute 全量重算数值字段；visits 按时间倒序
func (a *Aggregator) recompute(prev *models.FingerprintRecord, rec *models.VisitRecord, visits []models.VisitRecord, distinct int) *models.FingerprintRecord {
	fp := *prev
	fp.VisitCount = prev.VisitCount + 1
	fp.LastSeen = rec.Timestamp
	fp.Classification = rec.BotType

	newestFirst := make([]time.Time, len(visits))
	for i, v := range visits {
		newestFirst[i] = v.Timestamp
	}

	if intervals := Intervals(newestFirst); len(intervals) > 0 {
		mean, sd := MeanStddev(intervals)
		mean, sd = round2(mean), round2(sd)
		fp.RequestIntervalAvg = &mean
		fp.RequestIntervalStddev = &sd
	} else {
		fp.RequestIntervalAvg = nil
		fp.RequestIntervalStddev = nil
	}

	chronological := make([]time.Time, len(newestFirst))
	chronoVisits := make([]models.VisitRecord, len(visits))
	for i := range newestFirst {
		chronological[len(newestFirst)-1-i] = newestFirst[i]
		chronoVisits[len(visits)-1-i] = visits[i]
	}
	pages, duration := SessionAverages(Sessions(chronological, a.opts.SessionGap))
	fp.PagesPerSessionAvg = round2(pages)
	fp.SessionDurationAvg = round2(duration)

	fp.UniquePathsRatio = round2(float64(distinct) / float64(fp.VisitCount))
	fp.RobotsTxtChecked, fp.RespectsRobotsTxt = a.robotsState(prev, chronoVisits)
	return &fp
}

// robotsState 访问过 /robots.txt 即视为已检查；检查之后访问了禁止前缀则视为不遵守
func (a *Aggregator) robotsState(prev *models.FingerprintRecord, chronological []models.VisitRecord) (bool, *bool) {
	checked := prev.RobotsTxtChecked
	violated := prev.RespectsRobotsTxt != nil && !*prev.RespectsRobotsTxt

	for _, v := range chronological {
		path := visitPath(v.URL)
		if path == "/robots.txt" {
			checked = true
			continue
		}
		if checked && a.disallowed(path) {
			violated = true
		}
	}

	if !checked {
		return false, nil
	}
	respects := !violated
	return true, &respects
}

func (a *Aggregator) disallowed(path string) bool {
	for _, prefix := range a.opts.RobotsDisallow {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func visitPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}
