package reporting

import (
	"context"

	"go-botlens/pkg/logger"
	"go-botlens/pkg/metrics"
	"go-botlens/pkg/models"
)

// Sink 分析数据的一个下游
type Sink interface {
	Name() string
	Send(ctx context.Context, rec *models.VisitRecord) error
}

// Reporter 把已写入的访问记录推送给所有下游，失败只记录不返回
type Reporter struct {
	sinks []Sink
}

func New(sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks}
}

func (r *Reporter) Report(ctx context.Context, rec *models.VisitRecord) {
	for _, s := range r.sinks {
		if err := s.Send(ctx, rec); err != nil {
			metrics.DelegateFailures.WithLabelValues("report_" + s.Name()).Inc()
			logger.Log.Warnf("上报访问记录失败: sink=%s, event_id=%s, error=%v", s.Name(), rec.EventID, err)
		}
	}
}
