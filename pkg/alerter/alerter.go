package alerter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-botlens/pkg/logger"
)

// NewBotInfo 首次出现的爬虫类型
type NewBotInfo struct {
	BotType    string    `json:"bot_type"`
	BotName    string    `json:"bot_name"`
	UserAgent  string    `json:"user_agent"`
	URL        string    `json:"url"`
	ClientIP   string    `json:"client_ip"`
	Method     string    `json:"detection_method"`
	Confidence float64   `json:"confidence"`
	FirstSeen  time.Time `json:"first_seen"`
}

// Alerter 新爬虫通知，同一类型在冷却期内只通知一次
type Alerter struct {
	webhookURL   string
	client       *http.Client
	cooldown     time.Duration
	alertHistory map[string]time.Time // bot_type -> 最后通知时间
	historyMu    sync.Mutex
	stop         chan struct{}
	stopOnce     sync.Once
}

// NewAlerter 创建通知器，webhookURL 为空时只记日志
func NewAlerter(webhookURL string, timeout, cooldown time.Duration) *Alerter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	a := &Alerter{
		webhookURL:   webhookURL,
		client:       &http.Client{Timeout: timeout},
		cooldown:     cooldown,
		alertHistory: make(map[string]time.Time),
		stop:         make(chan struct{}),
	}

	// 定时清理过期的冷却记录
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.CleanupOldHistory(time.Now())
			case <-a.stop:
				return
			}
		}
	}()

	return a
}

// NotifyNewBot 发送新爬虫通知
func (a *Alerter) NotifyNewBot(ctx context.Context, info NewBotInfo) error {
	now := time.Now()

	a.historyMu.Lock()
	last, exists := a.alertHistory[info.BotType]
	if exists && now.Sub(last) < a.cooldown {
		a.historyMu.Unlock()
		logger.Log.Infof("爬虫类型 %s 在冷却期内，跳过通知", info.BotType)
		return nil
	}
	a.alertHistory[info.BotType] = now
	a.historyMu.Unlock()

	logger.Log.Infof("发现新爬虫: bot_type=%s, bot_name=%s, method=%s, confidence=%.2f, client_ip=%s",
		info.BotType, info.BotName, info.Method, info.Confidence, info.ClientIP)

	if a.webhookURL == "" {
		return nil
	}
	if err := a.send(ctx, info); err != nil {
		// 发送失败则允许下次重试
		a.historyMu.Lock()
		delete(a.alertHistory, info.BotType)
		a.historyMu.Unlock()
		return err
	}
	return nil
}

func (a *Alerter) send(ctx context.Context, info NewBotInfo) error {
	payload := struct {
		Event string `json:"event"`
		NewBotInfo
	}{
		Event:      "new_bot",
		NewBotInfo: info,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("通知webhook返回异常状态码: %d", resp.StatusCode)
	}
	return nil
}

// CleanupOldHistory 清理过期的冷却记录
func (a *Alerter) CleanupOldHistory(now time.Time) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()

	for botType, last := range a.alertHistory {
		if now.Sub(last) > a.cooldown {
			delete(a.alertHistory, botType)
		}
	}
}

func (a *Alerter) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
}
