package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrBadRequest - биржа отвергла запрос (неизвестный символ и т.п.),
// другие базовые адреса не пробуем.
var ErrBadRequest = errors.New("binance: bad request")

type Config struct {
	BaseURLs     []string
	Timeout      time.Duration
	Concurrency  int
	RequestDelay time.Duration
}

// Client - публичный REST Binance spot. Ключи не нужны.
// Базовые адреса перебираются по кругу, начиная с последнего рабочего.
type Client struct {
	http  *http.Client
	bases []string
	cfg   Config
	log   *zap.SugaredLogger

	preferred atomic.Int32
}

func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if len(cfg.BaseURLs) == 0 {
		cfg.BaseURLs = []string{"https://api.binance.com"}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	bases := make([]string, len(cfg.BaseURLs))
	for i, b := range cfg.BaseURLs {
		bases[i] = strings.TrimRight(b, "/")
	}
	return &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		bases: bases,
		cfg:   cfg,
		log:   log,
	}
}

// Close закрывает простаивающие keep-alive соединения.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// get выполняет GET path?query по базовым адресам до первого 2xx.
func (c *Client) get(ctx context.Context, path string, query url.Values) (body []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Client.get %s: %w", path, err)
		}
	}()

	start := int(c.preferred.Load())
	var lastErr error
	for n := 0; n < len(c.bases); n++ {
		idx := (start + n) % len(c.bases)
		u := c.bases[idx] + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		body, err = c.do(ctx, u)
		if err == nil {
			if idx != start {
				c.preferred.Store(int32(idx))
				c.log.Infof("[MARKET] switched to %s", c.bases[idx])
			}
			return body, nil
		}
		if errors.Is(err, ErrBadRequest) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		c.log.Warnf("[MARKET] %s failed: %v", c.bases[idx], err)
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode/100 == 2:
		return b, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, errors.Wrapf(ErrBadRequest, "%s", string(b))
	default:
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}
}

// sleep - пауза с учётом отмены.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
