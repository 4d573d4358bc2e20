package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-botlens/pkg/config"
	"go-botlens/pkg/logger"
	"go-botlens/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

//go:embed schema.sql
var schemaSQL string

// MySQLStore Store 的 MySQL 实现。DSN 需带 parseTime=true
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(cfg *config.Config) (*MySQLStore, error) {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(cfg.MySQL.MaxIdle)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &MySQLStore{db: db}, nil
}

// NewMySQLStoreWithDB 使用已有连接，测试中配合 sqlmock
func NewMySQLStoreWithDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Migrate 建表
func (s *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return nil
}

// DB 返回底层连接，供内容快照等共享同一个库的组件使用
func (s *MySQLStore) DB() *sql.DB {
	return s.db
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v int, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: valid}
}

const insertVisitSQL = `
	INSERT INTO bot_visits (
		event_id, fp_key, user_agent, bot_type, bot_name, url, content_id,
		cache_status, status_code, response_time_ms, client_ip,
		ip_verified, ip_verify_method, country_code, traffic_type,
		referral_platform, referral_query, referral_source, referral_medium,
		detection_method, confidence,
		word_count, heading_count, image_count, has_schema,
		content_modified_at, freshness_days, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertVisit 写入访问记录
func (s *MySQLStore) InsertVisit(ctx context.Context, v *models.VisitRecord) (int64, error) {
	var platform, query, source, medium string
	if v.Referral != nil {
		platform, query, source, medium = v.Referral.Platform, v.Referral.SearchQuery, v.Referral.Source, v.Referral.Medium
	}

	var (
		wordCount, headingCount, imageCount, freshness sql.NullInt64
		hasSchema                                      sql.NullBool
		modifiedAt                                     sql.NullTime
	)
	if c := v.Content; c != nil {
		wordCount = nullInt(c.WordCount, true)
		headingCount = nullInt(c.HeadingCount, true)
		imageCount = nullInt(c.ImageCount, true)
		hasSchema = sql.NullBool{Bool: c.HasSchema, Valid: true}
		if c.ModifiedAt != nil {
			modifiedAt = sql.NullTime{Time: *c.ModifiedAt, Valid: true}
		}
		if c.FreshnessDays != nil {
			freshness = nullInt(*c.FreshnessDays, true)
		}
	}

	result, err := s.db.ExecContext(ctx, insertVisitSQL,
		v.EventID,
		FingerprintKey(v.UserAgent, v.ClientIP),
		v.UserAgent,
		v.BotType,
		v.BotName,
		v.URL,
		nullString(v.ContentID),
		nullString(v.CacheStatus),
		nullInt(v.StatusCode, v.StatusCode != 0),
		sql.NullInt64{Int64: v.ResponseTimeMS, Valid: v.ResponseTimeMS != 0},
		v.ClientIP,
		nullBool(v.IPVerified),
		nullString(v.IPVerifyMethod),
		nullString(v.CountryCode),
		v.TrafficType,
		nullString(platform),
		nullString(query),
		nullString(source),
		nullString(medium),
		nullString(v.DetectionMethod),
		v.Confidence,
		wordCount,
		headingCount,
		imageCount,
		hasSchema,
		modifiedAt,
		freshness,
		v.Timestamp,
	)
	if err != nil {
		logger.Log.Errorf("保存访问记录失败: client_ip=%s, bot_type=%s, error=%v", v.ClientIP, v.BotType, err)
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LastCitation 最近一次 (platform, ip) 引用点击时间
func (s *MySQLStore) LastCitation(ctx context.Context, platform, ip string) (time.Time, bool, error) {
	query := `
        SELECT created_at
        FROM bot_visits
        WHERE traffic_type = ?
        AND referral_platform = ?
        AND client_ip = ?
        ORDER BY created_at DESC
        LIMIT 1
    `

	var ts time.Time
	err := s.db.QueryRowContext(ctx, query, models.TrafficCitationClick, platform, ip).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return ts, true, nil
}

func (s *MySQLStore) CountVisitsByBotType(ctx context.Context, botType string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bot_visits WHERE bot_type = ? AND traffic_type = ?`,
		botType, models.TrafficBotCrawl,
	).Scan(&n)
	return n, err
}

func (s *MySQLStore) RecentVisits(ctx context.Context, userAgent, ip string, limit int) ([]models.VisitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, url, bot_type, traffic_type, created_at
        FROM bot_visits
        WHERE fp_key = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, FingerprintKey(userAgent, ip), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []models.VisitRecord
	for rows.Next() {
		v := models.VisitRecord{UserAgent: userAgent, ClientIP: ip}
		if err := rows.Scan(&v.ID, &v.URL, &v.BotType, &v.TrafficType, &v.Timestamp); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (s *MySQLStore) DistinctURLCount(ctx context.Context, userAgent, ip string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT url) FROM bot_visits WHERE fp_key = ?`,
		FingerprintKey(userAgent, ip),
	).Scan(&n)
	return n, err
}

const fingerprintColumns = `fp_key, user_agent, ip, first_seen, last_seen, visit_count,
		request_interval_avg, request_interval_stddev, pages_per_session_avg,
		session_duration_avg, unique_paths_ratio, robots_txt_checked,
		respects_robots_txt, classification`

// GetFingerprint 不存在时返回 nil, nil
func (s *MySQLStore) GetFingerprint(ctx context.Context, key string) (*models.FingerprintRecord, error) {
	var (
		fp             models.FingerprintRecord
		avg, stddev    sql.NullFloat64
		respectsRobots sql.NullBool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+fingerprintColumns+` FROM bot_fingerprints WHERE fp_key = ?`, key,
	).Scan(
		&fp.Key, &fp.UserAgent, &fp.IP, &fp.FirstSeen, &fp.LastSeen, &fp.VisitCount,
		&avg, &stddev, &fp.PagesPerSessionAvg,
		&fp.SessionDurationAvg, &fp.UniquePathsRatio, &fp.RobotsTxtChecked,
		&respectsRobots, &fp.Classification,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if avg.Valid {
		fp.RequestIntervalAvg = &avg.Float64
	}
	if stddev.Valid {
		fp.RequestIntervalStddev = &stddev.Float64
	}
	if respectsRobots.Valid {
		fp.RespectsRobotsTxt = &respectsRobots.Bool
	}
	return &fp, nil
}

func (s *MySQLStore) InsertFingerprint(ctx context.Context, fp *models.FingerprintRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_fingerprints (`+fingerprintColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fp.Key, fp.UserAgent, fp.IP, fp.FirstSeen, fp.LastSeen, fp.VisitCount,
		nullFloat(fp.RequestIntervalAvg), nullFloat(fp.RequestIntervalStddev), fp.PagesPerSessionAvg,
		fp.SessionDurationAvg, fp.UniquePathsRatio, fp.RobotsTxtChecked,
		nullBool(fp.RespectsRobotsTxt), fp.Classification,
	)
	return err
}

func (s *MySQLStore) UpdateFingerprint(ctx context.Context, fp *models.FingerprintRecord) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE bot_fingerprints SET
            last_seen = ?, visit_count = ?,
            request_interval_avg = ?, request_interval_stddev = ?,
            pages_per_session_avg = ?, session_duration_avg = ?,
            unique_paths_ratio = ?, robots_txt_checked = ?,
            respects_robots_txt = ?, classification = ?
        WHERE fp_key = ?
    `,
		fp.LastSeen, fp.VisitCount,
		nullFloat(fp.RequestIntervalAvg), nullFloat(fp.RequestIntervalStddev),
		fp.PagesPerSessionAvg, fp.SessionDurationAvg,
		fp.UniquePathsRatio, fp.RobotsTxtChecked,
		nullBool(fp.RespectsRobotsTxt), fp.Classification,
		fp.Key,
	)
	return err
}
