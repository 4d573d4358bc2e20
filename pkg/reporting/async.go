package reporting

import (
	"context"
	"sync"
	"time"

	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
)

const defaultQueueSize = 1024

// AsyncReporter 把上报放到后台协程，写入路径只做一次非阻塞入队。队列满时丢弃
type AsyncReporter struct {
	reporter *Reporter
	timeout  time.Duration
	queue    chan *models.VisitRecord
	wg       sync.WaitGroup
	once     sync.Once
}

func NewAsync(reporter *Reporter, queueSize int, timeout time.Duration) *AsyncReporter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &AsyncReporter{
		reporter: reporter,
		timeout:  timeout,
		queue:    make(chan *models.VisitRecord, queueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Report 调用方的 ctx 只用于入队，发送使用独立的超时
func (a *AsyncReporter) Report(_ context.Context, rec *models.VisitRecord) {
	cp := *rec
	select {
	case a.queue <- &cp:
	default:
		metrics.DelegateFailures.WithLabelValues("report_queue_full").Inc()
		logger.Log.Warnf("上报队列已满，丢弃访问记录: event_id=%s", rec.EventID)
	}
}

func (a *AsyncReporter) run() {
	defer a.wg.Done()
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		a.reporter.Report(ctx, rec)
		cancel()
	}
}

// Close 停止接收并等待队列中剩余记录发送完。之后不能再调用 Report
func (a *AsyncReporter) Close() {
	a.once.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}
