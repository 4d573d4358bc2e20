package alerter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyNewBot(t *testing.T) {
	var hits atomic.Int32
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(srv.URL, time.Second, time.Hour)
	defer a.Close()

	info := NewBotInfo{BotType: "examplebot", BotName: "ExampleBot", Method: "signature", Confidence: 1}
	require.NoError(t, a.NotifyNewBot(context.Background(), info))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "new_bot", got["event"])
	assert.Equal(t, "examplebot", got["bot_type"])

	// 冷却期内不再发送
	require.NoError(t, a.NotifyNewBot(context.Background(), info))
	assert.Equal(t, int32(1), hits.Load())

	info.BotType = "otherbot"
	require.NoError(t, a.NotifyNewBot(context.Background(), info))
	assert.Equal(t, int32(2), hits.Load())
}

func TestNotifyNewBotFailureAllowsRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(srv.URL, time.Second, time.Hour)
	defer a.Close()

	info := NewBotInfo{BotType: "examplebot"}
	assert.Error(t, a.NotifyNewBot(context.Background(), info))
	assert.NoError(t, a.NotifyNewBot(context.Background(), info))
	assert.Equal(t, int32(2), hits.Load())
}

func TestCleanupOldHistory(t *testing.T) {
	a := NewAlerter("", time.Second, time.Minute)
	defer a.Close()

	require.NoError(t, a.NotifyNewBot(context.Background(), NewBotInfo{BotType: "examplebot"}))
	a.CleanupOldHistory(time.Now().Add(2 * time.Minute))

	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	assert.Empty(t, a.alertHistory)
}
