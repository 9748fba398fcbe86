package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/networth/internal/cache"
	"github.com/guttosm/networth/internal/domain/models"
	"github.com/guttosm/networth/internal/logger"
	"github.com/guttosm/networth/internal/notion"
)

var (
	aggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "networth_aggregations_total",
		Help: "Net worth computations by result (ok, error, cached)",
	}, []string{"result"})

	lastTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "networth_last_total",
		Help: "Total of the most recent successful computation",
	})
)

// NetWorthService computes the aggregate for the configured database.
type NetWorthService interface {
	GetNetWorth(ctx context.Context) (*models.NetWorth, error)
}

// SnapshotStore is the optional cache in front of the Notion walk.
// Get returns cache.ErrCacheMiss when nothing is stored.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (*models.NetWorth, error)
	Set(ctx context.Context, key string, nw *models.NetWorth, ttl time.Duration) error
}

// Options configures a NetWorthService.
type Options struct {
	DatabaseID   string
	AmountProp   string
	CategoryProp string

	// Coalesce shares one in-flight computation between concurrent callers.
	Coalesce bool

	// Cache and CacheTTL enable the snapshot cache when both are set.
	Cache    SnapshotStore
	CacheTTL time.Duration
}

type netWorthService struct {
	querier notion.Querier
	opts    Options
	key     string
	group   singleflight.Group
}

// NewNetWorthService wires the page fetcher and aggregator behind q.
func NewNetWorthService(q notion.Querier, opts Options) NetWorthService {
	if opts.CacheTTL <= 0 {
		opts.Cache = nil
	}
	return &netWorthService{
		querier: q,
		opts:    opts,
		key:     cache.Key(opts.DatabaseID, opts.AmountProp, opts.CategoryProp),
	}
}

// GetNetWorth returns the aggregate, serving from cache when possible.
// The returned value is owned by the caller.
func (s *netWorthService) GetNetWorth(ctx context.Context) (*models.NetWorth, error) {
	if nw := s.cached(ctx); nw != nil {
		aggregationsTotal.WithLabelValues("cached").Inc()
		return nw, nil
	}

	if !s.opts.Coalesce {
		return s.compute(ctx)
	}

	// The shared computation must not die with whichever caller started it.
	ch := s.group.DoChan(s.key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		nw := res.Val.(*models.NetWorth)
		if res.Shared {
			return nw.Clone(), nil
		}
		return nw, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *netWorthService) compute(ctx context.Context) (*models.NetWorth, error) {
	start := time.Now()

	records, err := notion.FetchAllRecords(ctx, s.querier, s.opts.DatabaseID)
	if err != nil {
		aggregationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	nw := Aggregate(records, s.opts.AmountProp, s.opts.CategoryProp)
	aggregationsTotal.WithLabelValues("ok").Inc()
	lastTotal.Set(nw.Total)

	logger.L().Info().
		Int("records", len(records)).
		Int("groups", len(nw.Groups)).
		Float64("total", nw.Total).
		Dur("elapsed", time.Since(start)).
		Msg("net worth computed")

	s.store(ctx, &nw)
	return &nw, nil
}

// cached returns a cached snapshot or nil. Cache failures only degrade to
// a live fetch.
func (s *netWorthService) cached(ctx context.Context) *models.NetWorth {
	if s.opts.Cache == nil {
		return nil
	}
	nw, err := s.opts.Cache.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.L().Warn().Err(err).Str("key", s.key).Msg("snapshot cache read failed")
		}
		return nil
	}
	return nw
}

func (s *netWorthService) store(ctx context.Context, nw *models.NetWorth) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, s.key, nw, s.opts.CacheTTL); err != nil {
		logger.L().Warn().Err(err).Str("key", s.key).Msg("snapshot cache write failed")
	}
}
