package reporting

import (
	"context"

	"go-botlens/pkg/config"
	"go-botlens/pkg/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const measurement = "bot_visit"

// InfluxSink 每条访问写一个点，供看板按爬虫类型、流量类型聚合
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(cfg *config.Config) *InfluxSink {
	client := influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket),
	}
}

func (s *InfluxSink) Name() string { return "influxdb" }

func (s *InfluxSink) Send(ctx context.Context, rec *models.VisitRecord) error {
	tags := map[string]string{
		"bot_type":     rec.BotType,
		"traffic_type": rec.TrafficType,
	}
	if rec.DetectionMethod != "" {
		tags["detection_method"] = rec.DetectionMethod
	}
	if rec.CountryCode != "" {
		tags["country_code"] = rec.CountryCode
	}
	if rec.Referral != nil && rec.Referral.Platform != "" {
		tags["platform"] = rec.Referral.Platform
	}

	fields := map[string]interface{}{
		"url":        rec.URL,
		"confidence": rec.Confidence,
	}
	if rec.StatusCode != 0 {
		fields["status_code"] = rec.StatusCode
	}
	if rec.ResponseTimeMS != 0 {
		fields["response_time_ms"] = rec.ResponseTimeMS
	}
	if rec.IPVerified != nil {
		fields["ip_verified"] = *rec.IPVerified
	}

	p := influxdb2.NewPoint(measurement, tags, fields, rec.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxSink) Close() {
	s.client.Close()
}
