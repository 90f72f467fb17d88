package telegram

import (
	"fmt"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/gobot-ui/core/config"
	"github.com/m3rciful/gobot-ui/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultLongPollTimeout = 10 * time.Second
	apiClientTimeout       = 30 * time.Second
	apiRetryAttempts       = 3
	apiRetryBackoff        = 2 * time.Second
)

// NewPoller picks a webhook or a long poller from the configured run mode.
// The config is expected to be normalized.
func NewPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPollTimeout
}

// NewAPIClient returns the HTTP client used for Bot API calls. Requests that fail
// to connect or time out are retried with a linear backoff.
func NewAPIClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   apiClientTimeout,
		Transport: &retryTransport{next: transport, attempts: apiRetryAttempts, backoff: apiRetryBackoff},
	}
}

// retryTransport replays a request whose body can be rebuilt.
type retryTransport struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; err != nil && attempt < t.attempts; attempt++ {
		delay, retry := netutil.RetryDelay(err, attempt, t.backoff)
		if !retry || (req.Body != nil && req.GetBody == nil) {
			break
		}
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
		again := req.Clone(req.Context())
		if req.GetBody != nil {
			if again.Body, err = req.GetBody(); err != nil {
				return nil, err
			}
		}
		resp, err = t.next.RoundTrip(again)
	}
	return resp, err
}
