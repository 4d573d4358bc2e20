package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go-botlens/pkg/models"
)

// Store 访问记录与指纹的持久化接口。查询无结果时返回零值而不是错误
type Store interface {
	// InsertVisit 写入一条访问记录，返回自增ID
	InsertVisit(ctx context.Context, v *models.VisitRecord) (int64, error)
	// LastCitation 返回 (platform, ip) 最近一次引用点击的时间
	LastCitation(ctx context.Context, platform, ip string) (time.Time, bool, error)
	// CountVisitsByBotType 统计某一爬虫类型的访问记录数
	CountVisitsByBotType(ctx context.Context, botType string) (int64, error)
	// RecentVisits 返回 (UA, IP) 最近的访问，按时间倒序；只填充 ID/URL/BotType/TrafficType/Timestamp
	RecentVisits(ctx context.Context, userAgent, ip string, limit int) ([]models.VisitRecord, error)
	// DistinctURLCount 统计 (UA, IP) 访问过的不同 URL 数
	DistinctURLCount(ctx context.Context, userAgent, ip string) (int, error)

	GetFingerprint(ctx context.Context, key string) (*models.FingerprintRecord, error)
	InsertFingerprint(ctx context.Context, fp *models.FingerprintRecord) error
	UpdateFingerprint(ctx context.Context, fp *models.FingerprintRecord) error

	Close() error
}

// FingerprintKey (UA, IP) 组合的指纹键
func FingerprintKey(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + ip))
	return hex.EncodeToString(sum[:])
}
