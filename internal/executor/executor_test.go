package executor

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"order-bench/internal/async"
	"order-bench/internal/models"
	"order-bench/internal/query"
	"order-bench/internal/util"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves fixed rows and counts every sub-query that has not
// returned yet.
type fakeSource struct {
	rows         []models.OrderSummary
	total        int64
	contentErr   error
	countErr     error
	contentDelay time.Duration
	countDelay   time.Duration

	inflight atomic.Int32
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) CountOrderSummaries(ctx context.Context, _ query.OrderSummaryQuery) (int64, error) {
	f.inflight.Add(1)
	defer f.inflight.Add(-1)
	if err := sleep(ctx, f.countDelay); err != nil {
		return 0, err
	}
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

func (f *fakeSource) FindOrderSummaries(ctx context.Context, _ query.OrderSummaryQuery) ([]models.OrderSummary, error) {
	f.inflight.Add(1)
	defer f.inflight.Add(-1)
	if err := sleep(ctx, f.contentDelay); err != nil {
		return nil, err
	}
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return append([]models.OrderSummary(nil), f.rows...), nil
}

func (f *fakeSource) PublishOrderSummaries(ctx context.Context, _ query.OrderSummaryQuery) (<-chan models.OrderSummary, <-chan error) {
	out := make(chan models.OrderSummary)
	errc := make(chan error, 1)
	f.inflight.Add(1)

	go func() {
		defer close(errc)
		defer close(out)
		defer f.inflight.Add(-1)

		if err := sleep(ctx, f.contentDelay); err != nil {
			errc <- err
			return
		}
		for _, row := range f.rows {
			select {
			case out <- row:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if f.contentErr != nil {
			errc <- f.contentErr
		}
	}()
	return out, errc
}

func (f *fakeSource) OrderSummaries(ctx context.Context, _ query.OrderSummaryQuery) iter.Seq2[models.OrderSummary, error] {
	return func(yield func(models.OrderSummary, error) bool) {
		f.inflight.Add(1)
		defer f.inflight.Add(-1)

		if err := sleep(ctx, f.contentDelay); err != nil {
			yield(models.OrderSummary{}, err)
			return
		}
		for _, row := range f.rows {
			if !yield(row, nil) {
				return
			}
		}
		if f.contentErr != nil {
			yield(models.OrderSummary{}, f.contentErr)
		}
	}
}

func fakeRows() []models.OrderSummary {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.OrderSummary{
		{OrderID: 3, CustomerName: "Carol", ProductName: "Keyboard", Quantity: 1, TotalAmount: models.MustAmount("49.90"), OrderStatus: models.OrderStatusDelivered, OrderDate: at},
		{OrderID: 1, CustomerName: "Alice", ProductName: "Keyboard", Quantity: 2, TotalAmount: models.MustAmount("99.80"), OrderStatus: models.OrderStatusDelivered, OrderDate: at.Add(-time.Hour)},
	}
}

func newExecutor(t *testing.T, strategy Strategy, src *fakeSource, opts Options) Executor {
	t.Helper()
	exec, err := New(strategy, Sources{List: src, Stream: src, Sequence: src}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })
	return exec
}

func testQuery(t *testing.T, page, size int) query.OrderSummaryQuery {
	t.Helper()
	q, err := query.New(models.OrderStatusDelivered, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), page, size)
	require.NoError(t, err)
	return q
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStrategy("fibers")
	assert.Error(t, err)
}

func TestNewRequiresMatchingSource(t *testing.T) {
	for _, s := range Strategies {
		_, err := New(s, Sources{}, Options{})
		assert.Error(t, err, s)
	}
}

func TestExecuteAssemblesPage(t *testing.T) {
	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: fakeRows(), total: 12}
			exec := newExecutor(t, strategy, src, Options{Timeout: time.Second, PoolSize: 2})
			assert.Equal(t, strategy, exec.Strategy())

			page, err := exec.Execute(context.Background(), testQuery(t, 1, 5)).Wait()
			require.NoError(t, err)
			assert.Equal(t, []int64{3, 1}, []int64{page.Content[0].OrderID, page.Content[1].OrderID})
			assert.Equal(t, 1, page.Page)
			assert.Equal(t, 5, page.Size)
			assert.Equal(t, int64(12), page.TotalElements)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, int32(0), src.inflight.Load())
		})
	}
}

func TestCountFailureYieldsNoPage(t *testing.T) {
	countErr := models.NewQueryError(models.KindStoreUnavailable, "count", errors.New("connection refused"))

	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: fakeRows(), total: 2, countErr: countErr, contentDelay: 20 * time.Millisecond}
			exec := newExecutor(t, strategy, src, Options{Timeout: 5 * time.Second, PoolSize: 2})

			page, err := exec.Execute(context.Background(), testQuery(t, 0, 10)).Wait()
			require.Error(t, err)
			assert.Nil(t, page)
			assert.Equal(t, models.KindStoreUnavailable, models.KindOf(err))
			assert.Equal(t, int32(0), src.inflight.Load())
		})
	}
}

func TestContentFailureYieldsNoPage(t *testing.T) {
	contentErr := models.NewQueryError(models.KindSerialization, "scan", errors.New("bad row"))

	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: fakeRows(), total: 2, contentErr: contentErr, countDelay: 20 * time.Millisecond}
			exec := newExecutor(t, strategy, src, Options{Timeout: 5 * time.Second, PoolSize: 2})

			page, err := exec.Execute(context.Background(), testQuery(t, 0, 10)).Wait()
			require.Error(t, err)
			assert.Nil(t, page)
			assert.Equal(t, models.KindSerialization, models.KindOf(err))
			assert.Equal(t, int32(0), src.inflight.Load())
		})
	}
}

func TestInvalidRowIsSerializationFailure(t *testing.T) {
	rows := fakeRows()
	rows[1].CustomerName = ""

	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: rows, total: 2}
			exec := newExecutor(t, strategy, src, Options{Timeout: 5 * time.Second, PoolSize: 2})

			_, err := exec.Execute(context.Background(), testQuery(t, 0, 10)).Wait()
			require.Error(t, err)
			assert.Equal(t, models.KindSerialization, models.KindOf(err))
			assert.Equal(t, int32(0), src.inflight.Load())
		})
	}
}

func TestDeadlineIsQueryTimeout(t *testing.T) {
	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: fakeRows(), total: 2, contentDelay: 5 * time.Second, countDelay: 5 * time.Second}
			exec := newExecutor(t, strategy, src, Options{Timeout: 50 * time.Millisecond, PoolSize: 2})

			start := time.Now()
			page, err := exec.Execute(context.Background(), testQuery(t, 0, 10)).Wait()
			require.Error(t, err)
			assert.Nil(t, page)
			assert.Equal(t, models.KindQueryTimeout, models.KindOf(err))
			assert.True(t, time.Since(start) < 2*time.Second)
			assert.Equal(t, int32(0), src.inflight.Load())
		})
	}
}

func TestCallerCancellation(t *testing.T) {
	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			src := &fakeSource{rows: fakeRows(), total: 2, contentDelay: 5 * time.Second, countDelay: 5 * time.Second}
			exec := newExecutor(t, strategy, src, Options{PoolSize: 2})

			ctx, cancel := context.WithCancel(context.Background())
			f := exec.Execute(ctx, testQuery(t, 0, 10))
			time.AfterFunc(20*time.Millisecond, cancel)

			_, err := f.Wait()
			require.Error(t, err)
			assert.Equal(t, models.KindCanceled, models.KindOf(err))
		})
	}
}

func TestPoolSaturationQueuesRequests(t *testing.T) {
	src := &fakeSource{rows: fakeRows(), total: 2, contentDelay: 10 * time.Millisecond}
	exec := newExecutor(t, StrategyPool, src, Options{Timeout: 5 * time.Second, PoolSize: 2})

	q := testQuery(t, 0, 10)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Execute(context.Background(), q).Wait()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(0), src.inflight.Load())
}

func TestPoolAdmissionHonoursDeadline(t *testing.T) {
	exec := newExecutor(t, StrategyPool, &fakeSource{}, Options{PoolSize: 1})

	release := make(chan struct{})
	busy := exec.Submit(context.Background(), func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := exec.Submit(ctx, func(ctx context.Context) error { return nil }).Wait()
	require.Error(t, err)
	assert.Equal(t, models.KindQueryTimeout, models.KindOf(err))

	close(release)
	_, err = busy.Wait()
	assert.NoError(t, err)
}

func TestPoolRunningGaugeTracksBusyWorkers(t *testing.T) {
	exec := newExecutor(t, StrategyPool, &fakeSource{}, Options{PoolSize: 8})
	running := func() float64 { return testutil.ToFloat64(util.PoolRunningWorkers) }
	require.Eventually(t, func() bool { return running() == 0 }, time.Second, 5*time.Millisecond)

	const busy = 5
	var started sync.WaitGroup
	started.Add(busy)
	release := make(chan struct{})
	futures := make([]*async.Future[struct{}], 0, busy)
	for i := 0; i < busy; i++ {
		futures = append(futures, exec.Submit(context.Background(), func(ctx context.Context) error {
			started.Done()
			<-release
			return nil
		}))
	}

	started.Wait()
	assert.Equal(t, float64(busy), running())

	close(release)
	for _, f := range futures {
		_, err := f.Wait()
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return running() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubmitRunsTask(t *testing.T) {
	for _, strategy := range Strategies {
		t.Run(string(strategy), func(t *testing.T) {
			exec := newExecutor(t, strategy, &fakeSource{}, Options{PoolSize: 2})

			var ran atomic.Int32
			_, err := exec.Submit(context.Background(), func(ctx context.Context) error {
				ran.Add(1)
				return nil
			}).Wait()
			require.NoError(t, err)
			assert.Equal(t, int32(1), ran.Load())

			boom := errors.New("boom")
			_, err = exec.Submit(context.Background(), func(ctx context.Context) error { return boom }).Wait()
			assert.ErrorIs(t, err, boom)

			_, err = exec.Submit(context.Background(), func(ctx context.Context) error { panic("task exploded") }).Wait()
			assert.ErrorContains(t, err, "task exploded")
		})
	}
}
