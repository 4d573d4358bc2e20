package fingerprint

import (
	"math"
	"time"
)

// Session 一段连续访问，相邻间隔不超过会话间隔
type Session struct {
	Start time.Time
	End   time.Time
	Pages int
}

func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Intervals 按时间倒序的访问时间 -> 相邻间隔（秒）
func Intervals(newestFirst []time.Time) []float64 {
	if len(newestFirst) < 2 {
		return nil
	}
	out := make([]float64, 0, len(newestFirst)-1)
	for i := 0; i < len(newestFirst)-1; i++ {
		out = append(out, newestFirst[i].Sub(newestFirst[i+1]).Seconds())
	}
	return out
}

// MeanStddev 均值与总体标准差（方差取偏差平方的均值，而非样本方差）
func MeanStddev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// Sessions 按时间正序切分会话：与上一次访问的间隔大于 gap 时开启新会话
func Sessions(chronological []time.Time, gap time.Duration) []Session {
	var sessions []Session
	for i, ts := range chronological {
		if i == 0 || ts.Sub(chronological[i-1]) > gap {
			sessions = append(sessions, Session{Start: ts, End: ts, Pages: 1})
			continue
		}
		cur := &sessions[len(sessions)-1]
		cur.End = ts
		cur.Pages++
	}
	return sessions
}

// SessionAverages 平均每会话页数与平均会话时长（秒）
func SessionAverages(sessions []Session) (pages, duration float64) {
	if len(sessions) == 0 {
		return 0, 0
	}
	var p, d float64
	for _, s := range sessions {
		p += float64(s.Pages)
		d += s.Duration().Seconds()
	}
	n := float64(len(sessions))
	return p / n, d / n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
