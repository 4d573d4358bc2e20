package dedup

import (
	"context"
	"fmt"
	"time"

	"go-botlens/pkg/storage"
)

const DefaultWindow = 30 * time.Minute

// Deduplicator 判断同一 (平台, IP) 的引用点击是否落在去重窗口内。
//
// IsDuplicate 返回 false 时可能已经占用了窗口（Redis 实现），
// 调用方写库失败后应调用 Forget 释放。
type Deduplicator interface {
	IsDuplicate(ctx context.Context, platform, ip string, now time.Time) (bool, error)
	Forget(ctx context.Context, platform, ip string) error
}

// StoreDeduplicator 以访问表中最近一次引用点击为准。
// 检查与写入之间不是原子的，多进程下可能各写入一条
type StoreDeduplicator struct {
	store  storage.Store
	window time.Duration
}

func NewStoreDeduplicator(store storage.Store, window time.Duration) *StoreDeduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &StoreDeduplicator{store: store, window: window}
}

func (d *StoreDeduplicator) IsDuplicate(ctx context.Context, platform, ip string, now time.Time) (bool, error) {
	last, ok, err := d.store.LastCitation(ctx, platform, ip)
	if err != nil {
		return false, fmt.Errorf("查询最近引用失败: %w", err)
	}
	if !ok {
		return false, nil
	}
	return now.Sub(last) < d.window, nil
}

// Forget 无需处理，未写入的记录自然不会被查到
func (d *StoreDeduplicator) Forget(context.Context, string, string) error {
	return nil
}
