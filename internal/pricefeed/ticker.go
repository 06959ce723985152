package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const tickerPath = "/ticker/price"

// ErrInvalidPrice is returned when the feed answers with an unusable price.
var ErrInvalidPrice = errors.New("invalid price")

// StatusError is a non-2xx answer from the feed.
type StatusError struct {
	StatusCode int
	Body       []byte // Truncated; Binance puts {"code","msg"} here
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("price feed returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether asking again may succeed (rate limit or server side).
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// TickerPrice is the /ticker/price response.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetPrice fetches the current spot price for symbol. Temporary feed errors
// are retried with jittered exponential backoff; a price that does not parse
// or is negative fails with ErrInvalidPrice.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	tp, err := c.tickerWithRetry(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get ticker price: %w", err)
	}

	price, err := decimal.NewFromString(tp.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidPrice, tp.Price)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative %s", ErrInvalidPrice, price)
	}

	return price, nil
}

func (c *Client) tickerWithRetry(ctx context.Context, symbol string) (TickerPrice, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff * [0.5, 1.5)
			var delay time.Duration
			if backoff > 0 {
				delay = backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			}
			c.logger.Debug("retrying ticker fetch",
				"symbol", symbol,
				"attempt", attempt,
				"backoff", delay,
				"last_error", lastErr,
			)

			select {
			case <-ctx.Done():
				return TickerPrice{}, ctx.Err()
			case <-time.After(delay):
			}
			backoff *= 2
		}

		tp, err := c.fetchTicker(ctx, symbol)
		if err == nil {
			return tp, nil
		}
		lastErr = err

		var serr *StatusError
		if !errors.As(err, &serr) || !serr.Temporary() {
			return TickerPrice{}, err
		}
	}

	return TickerPrice{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// fetchTicker makes one request for symbol.
func (c *Client) fetchTicker(ctx context.Context, symbol string) (TickerPrice, error) {
	u := c.baseURL + tickerPath + "?" + url.Values{"symbol": {symbol}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return TickerPrice{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TickerPrice{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TickerPrice{}, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	var tp TickerPrice
	if err := json.NewDecoder(resp.Body).Decode(&tp); err != nil {
		return TickerPrice{}, fmt.Errorf("decode ticker: %w", err)
	}
	return tp, nil
}
