package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-botlens/pkg/models"
)

// MemoryStore 内存实现，仅用于测试和本地调试
type MemoryStore struct {
	mu           sync.RWMutex
	visits       []models.VisitRecord
	fingerprints map[string]models.FingerprintRecord
	nextID       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fingerprints: make(map[string]models.FingerprintRecord),
	}
}

func (m *MemoryStore) InsertVisit(_ context.Context, v *models.VisitRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec := *v
	rec.ID = m.nextID
	m.visits = append(m.visits, rec)
	return rec.ID, nil
}

func (m *MemoryStore) LastCitation(_ context.Context, platform, ip string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	found := false
	for _, v := range m.visits {
		if v.TrafficType != models.TrafficCitationClick || v.ClientIP != ip {
			continue
		}
		if v.Referral == nil || v.Referral.Platform != platform {
			continue
		}
		if !found || v.Timestamp.After(last) {
			last = v.Timestamp
			found = true
		}
	}
	return last, found, nil
}

func (m *MemoryStore) CountVisitsByBotType(_ context.Context, botType string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, v := range m.visits {
		if v.BotType == botType && v.TrafficType == models.TrafficBotCrawl {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RecentVisits(_ context.Context, userAgent, ip string, limit int) ([]models.VisitRecord, error) {
	m.mu.RLock()
	var out []models.VisitRecord
	for _, v := range m.visits {
		if v.UserAgent == userAgent && v.ClientIP == ip {
			out = append(out, v)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DistinctURLCount(_ context.Context, userAgent, ip string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, v := range m.visits {
		if v.UserAgent == userAgent && v.ClientIP == ip {
			seen[v.URL] = struct{}{}
		}
	}
	return len(seen), nil
}

func (m *MemoryStore) GetFingerprint(_ context.Context, key string) (*models.FingerprintRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fp, ok := m.fingerprints[key]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

func (m *MemoryStore) InsertFingerprint(_ context.Context, fp *models.FingerprintRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprints[fp.Key] = *fp
	return nil
}

func (m *MemoryStore) UpdateFingerprint(ctx context.Context, fp *models.FingerprintRecord) error {
	return m.InsertFingerprint(ctx, fp)
}

// Visits 返回全部访问记录的副本
func (m *MemoryStore) Visits() []models.VisitRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.VisitRecord, len(m.visits))
	copy(out, m.visits)
	return out
}

func (m *MemoryStore) Close() error {
	return nil
}
