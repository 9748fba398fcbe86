package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/networth/internal/cache"
	"github.com/guttosm/networth/internal/domain/models"
	"github.com/guttosm/networth/internal/notion"
)

// stubQuerier returns one fixed page and counts calls. When gate is set,
// each call blocks until it is closed.
type stubQuerier struct {
	records []models.Record
	err     error
	gate    chan struct{}
	calls   atomic.Int32
}

func (s *stubQuerier) QueryDatabase(ctx context.Context, _ notion.QueryRequest) (*notion.QueryResponse, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &notion.QueryResponse{Results: s.records}, nil
}

// memStore is an in-memory SnapshotStore.
type memStore struct {
	mu      sync.Mutex
	data    map[string]*models.NetWorth
	getErr  error
	setErr  error
	sets    int
	lastTTL time.Duration
}

func (m *memStore) Get(_ context.Context, key string) (*models.NetWorth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	nw, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return nw.Clone(), nil
}

func (m *memStore) Set(_ context.Context, key string, nw *models.NetWorth, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.lastTTL = ttl
	if m.setErr != nil {
		return m.setErr
	}
	if m.data == nil {
		m.data = map[string]*models.NetWorth{}
	}
	m.data[key] = nw.Clone()
	return nil
}

var _ SnapshotStore = (*memStore)(nil)
var _ SnapshotStore = (*cache.RedisStore)(nil)

func sample() []models.Record {
	hundred, fifty, zero := 100.0, 50.0, 0.0
	return []models.Record{
		{ID: "1", Properties: map[string]models.PropertyValue{
			"Amount":  models.NumberValue{Number: &hundred},
			"Account": models.SelectValue{Option: &models.SelectOption{Name: "Checking"}},
		}},
		{ID: "2", Properties: map[string]models.PropertyValue{
			"Amount":  models.NumberValue{Number: &zero},
			"Account": models.SelectValue{Option: &models.SelectOption{Name: "Savings"}},
		}},
		{ID: "3", Properties: map[string]models.PropertyValue{
			"Amount": models.NumberValue{Number: &fifty},
		}},
	}
}

func baseOpts() Options {
	return Options{DatabaseID: "db1", AmountProp: "Amount", CategoryProp: "Account"}
}

func TestNetWorthService_TableDriven(t *testing.T) {
	cases := []struct {
		name    string
		q       *stubQuerier
		wantErr bool
	}{
		{name: "success", q: &stubQuerier{records: sample()}},
		{name: "error", q: &stubQuerier{err: errors.New("boom")}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, coalesce := range []bool{false, true} {
				opts := baseOpts()
				opts.Coalesce = coalesce
				svc := NewNetWorthService(tc.q, opts)
				out, err := svc.GetNetWorth(context.Background())
				if tc.wantErr {
					if err == nil || out != nil {
						t.Fatalf("coalesce=%v: expected error, got out=%+v err=%v", coalesce, out, err)
					}
					continue
				}
				if err != nil || out == nil {
					t.Fatalf("coalesce=%v: unexpected out=%+v err=%v", coalesce, out, err)
				}
				if out.Total != 150 || out.Groups["Checking"] != 100 || out.Groups[models.FallbackCategory] != 50 {
					t.Fatalf("coalesce=%v: unexpected result %+v", coalesce, out)
				}
			}
		})
	}
}

func TestNetWorthService_ErrorIsWrapped(t *testing.T) {
	boom := errors.New("network down")
	svc := NewNetWorthService(&stubQuerier{err: boom}, baseOpts())
	_, err := svc.GetNetWorth(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestNetWorthService_CoalescesConcurrentCallers(t *testing.T) {
	q := &stubQuerier{records: sample(), gate: make(chan struct{})}
	opts := baseOpts()
	opts.Coalesce = true
	svc := NewNetWorthService(q, opts)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*models.NetWorth, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetNetWorth(context.Background())
		}(i)
	}

	// wait until the single upstream call is in flight, then let it finish
	deadline := time.Now().Add(2 * time.Second)
	for q.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	close(q.gate)
	wg.Wait()

	if got := q.calls.Load(); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil || results[i] == nil || results[i].Total != 150 {
			t.Fatalf("caller %d: out=%+v err=%v", i, results[i], errs[i])
		}
	}
	// each caller owns its result
	results[0].Groups["Checking"] = -1
	for i := 1; i < callers; i++ {
		if results[i].Groups["Checking"] != 100 {
			t.Fatalf("caller %d observed another caller's mutation", i)
		}
	}
}

func TestNetWorthService_WaiterHonoursOwnContext(t *testing.T) {
	q := &stubQuerier{records: sample(), gate: make(chan struct{})}
	defer close(q.gate)
	opts := baseOpts()
	opts.Coalesce = true
	svc := NewNetWorthService(q, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.GetNetWorth(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNetWorthService_CacheHitSkipsFetch(t *testing.T) {
	q := &stubQuerier{records: sample()}
	store := &memStore{}
	opts := baseOpts()
	opts.Cache = store
	opts.CacheTTL = time.Minute
	svc := NewNetWorthService(q, opts)

	first, err := svc.GetNetWorth(context.Background())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetNetWorth(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if q.calls.Load() != 1 {
		t.Fatalf("upstream calls = %d, want 1", q.calls.Load())
	}
	if store.sets != 1 || store.lastTTL != time.Minute {
		t.Fatalf("store sets=%d ttl=%v", store.sets, store.lastTTL)
	}
	if first.Total != second.Total || second.Groups["Checking"] != 100 {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestNetWorthService_CacheFailuresDegrade(t *testing.T) {
	q := &stubQuerier{records: sample()}
	store := &memStore{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	opts := baseOpts()
	opts.Cache = store
	opts.CacheTTL = time.Minute
	svc := NewNetWorthService(q, opts)

	out, err := svc.GetNetWorth(context.Background())
	if err != nil || out.Total != 150 {
		t.Fatalf("cache failure must not fail the request: out=%+v err=%v", out, err)
	}
}

func TestNetWorthService_ZeroTTLDisablesCache(t *testing.T) {
	q := &stubQuerier{records: sample()}
	store := &memStore{}
	opts := baseOpts()
	opts.Cache = store
	svc := NewNetWorthService(q, opts)

	for i := 0; i < 2; i++ {
		if _, err := svc.GetNetWorth(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if store.sets != 0 || q.calls.Load() != 2 {
		t.Fatalf("cache used with zero TTL: sets=%d calls=%d", store.sets, q.calls.Load())
	}
}

func TestNetWorthService_PagesThrough250Records(t *testing.T) {
	q := &pagingQuerier{total: 250}
	svc := NewNetWorthService(q, baseOpts())
	out, err := svc.GetNetWorth(context.Background())
	if err != nil {
		t.Fatalf("GetNetWorth: %v", err)
	}
	if q.calls != 3 {
		t.Fatalf("calls = %d, want 3", q.calls)
	}
	if out.Total != 250 || out.Groups[models.FallbackCategory] != 250 {
		t.Fatalf("unexpected result %+v", out)
	}
}

type pagingQuerier struct {
	total int
	calls int
}

func (p *pagingQuerier) QueryDatabase(_ context.Context, req notion.QueryRequest) (*notion.QueryResponse, error) {
	p.calls++
	offset := 0
	if req.StartCursor != "" {
		_, _ = fmt.Sscanf(req.StartCursor, "%d", &offset)
	}
	end := offset + req.PageSize
	if end > p.total {
		end = p.total
	}
	one := 1.0
	resp := &notion.QueryResponse{}
	for i := offset; i < end; i++ {
		resp.Results = append(resp.Results, models.Record{
			ID:         fmt.Sprint(i),
			Properties: map[string]models.PropertyValue{"Amount": models.NumberValue{Number: &one}},
		})
	}
	if end < p.total {
		resp.HasMore = true
		resp.NextCursor = fmt.Sprint(end)
	}
	return resp, nil
}
