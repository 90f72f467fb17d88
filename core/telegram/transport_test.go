package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"

	tele "gopkg.in/telebot.v4"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://bot.example.com/hook"

	wh, ok := NewPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)

	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	lp, ok := NewPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, defaultLongPollTimeout, lp.Timeout)

	cfg.Telegram.LongPollTimeoutSeconds = 25
	require.Equal(t, 25*time.Second, NewPoller(cfg).(*tele.LongPoller).Timeout)
}

func TestRetryTransportReplaysBody(t *testing.T) {
	var bodies []string
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) < 3 {
			return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	})
	rt := &retryTransport{next: next, attempts: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/getMe", strings.NewReader("a=1"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"a=1", "a=1", "a=1"}, bodies)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	calls := 0
	next := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("tls: bad certificate")
	})
	rt := &retryTransport{next: next, attempts: 3, backoff: time.Millisecond}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
