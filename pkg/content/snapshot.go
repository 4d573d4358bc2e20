package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-botlens/pkg/models"
)

// Source 按内容 ID 取正文
type Source interface {
	Fetch(ctx context.Context, contentID string) (body string, modifiedAt *time.Time, found bool, err error)
}

// MySQLSource 读取 contents 表，与访问记录共用一个库
type MySQLSource struct {
	db *sql.DB
}

func NewMySQLSource(db *sql.DB) *MySQLSource {
	return &MySQLSource{db: db}
}

func (s *MySQLSource) Fetch(ctx context.Context, contentID string) (string, *time.Time, bool, error) {
	var (
		body     string
		modified sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, modified_at FROM contents WHERE id = ?`, contentID,
	).Scan(&body, &modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, false, nil
		}
		return "", nil, false, err
	}
	if !modified.Valid {
		return body, nil, true, nil
	}
	return body, &modified.Time, true, nil
}

// Snapshotter 访问发生时的内容指标快照
type Snapshotter struct {
	source Source
	now    func() time.Time
}

func NewSnapshotter(source Source) *Snapshotter {
	return &Snapshotter{source: source, now: time.Now}
}

// Snapshot 内容不存在时返回 nil, nil
func (s *Snapshotter) Snapshot(ctx context.Context, contentID string) (*models.ContentMetrics, error) {
	body, modified, found, err := s.source.Fetch(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("读取内容失败: content_id=%s: %w", contentID, err)
	}
	if !found {
		return nil, nil
	}

	m, err := Analyze(body)
	if err != nil {
		return nil, fmt.Errorf("解析内容失败: content_id=%s: %w", contentID, err)
	}
	if modified != nil {
		m.ModifiedAt = modified
		days := FreshnessDays(*modified, s.now())
		m.FreshnessDays = &days
	}
	return &m, nil
}

// FreshnessDays 距最后修改的整天数，未来时间按 0 处理
func FreshnessDays(modified, now time.Time) int {
	d := now.Sub(modified)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
