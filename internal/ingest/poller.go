package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/trendgame/internal/model"
)

// PriceFetcher returns the current spot price.
type PriceFetcher interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PriceAppender stores a sample.
type PriceAppender interface {
	AppendPrice(ctx context.Context, s model.PriceSample) error
}

// PriceFetcherFunc is a function adapter for PriceFetcher.
type PriceFetcherFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

func (f PriceFetcherFunc) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f(ctx, symbol)
}

// Config holds poller configuration.
type Config struct {
	Symbol       string        // Feed symbol (default: BTCUSDT)
	Interval     time.Duration // Poll interval (default: 60s)
	FetchTimeout time.Duration // Per-fetch timeout (default: 10s)
	FetchOnStart bool          // Fetch immediately instead of waiting one interval
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Symbol:       "BTCUSDT",
		Interval:     time.Minute,
		FetchTimeout: 10 * time.Second,
	}
}

// Stats counts poll cycle outcomes.
type Stats struct {
	Cycles        int64
	Appended      int64
	FetchFailures int64
	StoreFailures int64
	LastSampleAt  time.Time
}

// Poller periodically fetches the spot price and appends it to the price series.
type Poller struct {
	cfg     Config
	fetcher PriceFetcher
	prices  PriceAppender
	logger  *slog.Logger
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, fetcher PriceFetcher, prices PriceAppender, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		fetcher: fetcher,
		prices:  prices,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("price poller started",
		"symbol", p.cfg.Symbol,
		"interval", p.cfg.Interval,
	)

	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("price poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the cycle counters.
func (p *Poller) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if p.cfg.FetchOnStart {
		p.poll()
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll runs one fetch-and-append cycle.
func (p *Poller) poll() {
	start := time.Now()
	p.record(func(s *Stats) { s.Cycles++ })

	fetchCtx, cancel := context.WithTimeout(p.ctx, p.cfg.FetchTimeout)
	price, err := p.fetcher.GetPrice(fetchCtx, p.cfg.Symbol)
	cancel()
	if err != nil {
		if p.ctx.Err() != nil {
			return
		}
		p.logger.Warn("price fetch failed, skipping cycle",
			"symbol", p.cfg.Symbol,
			"err", err,
		)
		p.record(func(s *Stats) { s.FetchFailures++ })
		return
	}

	sample := model.PriceSample{Timestamp: p.now().UTC(), Price: price}

	// Once fetched, the append is not cut short by shutdown; it is bounded by
	// its own timeout instead.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), p.cfg.FetchTimeout)
	defer cancel()
	if err := p.prices.AppendPrice(appendCtx, sample); err != nil {
		p.logger.Error("price append failed",
			"symbol", p.cfg.Symbol,
			"err", err,
		)
		p.record(func(s *Stats) { s.StoreFailures++ })
		return
	}

	p.record(func(s *Stats) {
		s.Appended++
		s.LastSampleAt = sample.Timestamp
	})

	p.logger.Debug("price sample appended",
		"symbol", p.cfg.Symbol,
		"price", price.String(),
		"duration", time.Since(start),
	)
}

func (p *Poller) record(f func(*Stats)) {
	p.statsMu.Lock()
	f(&p.stats)
	p.statsMu.Unlock()
}
