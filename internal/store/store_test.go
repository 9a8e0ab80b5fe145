package store_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"order-bench/internal/models"
	"order-bench/internal/query"
	"order-bench/internal/store"
	"order-bench/internal/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustQuery(t *testing.T, since time.Time, page, size int) query.OrderSummaryQuery {
	t.Helper()
	q, err := query.New(models.OrderStatusDelivered, since, page, size)
	require.NoError(t, err)
	return q
}

func ids(rows []models.OrderSummary) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.OrderID)
	}
	return out
}

func TestNativeFindOrderSummaries(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())
	ctx := context.Background()

	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 0, 10)
	rows, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, sc.DeliveredIDs, ids(rows))

	first := rows[0]
	assert.Equal(t, "Carol", first.CustomerName)
	assert.Equal(t, "Keyboard", first.ProductName)
	assert.Equal(t, 1, first.Quantity)
	assert.Equal(t, "49.90", first.TotalAmount.String())
	assert.Equal(t, models.OrderStatusDelivered, first.OrderStatus)

	total, err := s.Native().CountOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestOrphanOrdersAreExcluded(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())
	storetest.SeedOrphans(t, s, sc.Now)
	ctx := context.Background()

	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 0, 10)

	native, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, sc.DeliveredIDs, ids(native))

	entity, err := s.Entity().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, sc.DeliveredIDs, ids(entity))

	// The count joins the same tables, so orphans never inflate totals.
	for name, count := range map[string]func(context.Context, query.OrderSummaryQuery) (int64, error){
		"native": s.Native().CountOrderSummaries,
		"entity": s.Entity().CountOrderSummaries,
	} {
		total, err := count(ctx, q)
		require.NoError(t, err, name)
		assert.Equal(t, int64(3), total, name)
	}
}

func TestRenderingsReturnIdenticalRows(t *testing.T) {
	s := storetest.Open(t)
	now := time.Now()
	storetest.SeedScenario(t, s, now)
	storetest.SeedMany(t, s, now, 100, 25)
	ctx := context.Background()

	for page := 0; page < 4; page++ {
		q := mustQuery(t, now.AddDate(0, 0, -30), page, 7)

		native, err := s.Native().FindOrderSummaries(ctx, q)
		require.NoError(t, err)
		entity, err := s.Entity().FindOrderSummaries(ctx, q)
		require.NoError(t, err)

		nativeJSON, err := json.Marshal(native)
		require.NoError(t, err)
		entityJSON, err := json.Marshal(entity)
		require.NoError(t, err)
		assert.JSONEq(t, string(nativeJSON), string(entityJSON), "page %d", page)
	}
}

func TestTieBreakIsStable(t *testing.T) {
	s := storetest.Open(t)
	now := time.Now()
	storetest.SeedMany(t, s, now, 1, 9)
	ctx := context.Background()

	q := mustQuery(t, now.AddDate(0, 0, -1), 0, 9)
	rows, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)

	// Three orders per timestamp, newest first, ascending id within a timestamp.
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, ids(rows))

	again, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, ids(rows), ids(again))
}

func TestPageBeyondRangeIsEmpty(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())
	ctx := context.Background()

	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 5, 10)
	rows, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, rows)

	total, err := s.Native().CountOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestPublishOrderSummaries(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())

	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 0, 10)
	out, errc := s.Native().PublishOrderSummaries(context.Background(), q)

	var got []models.OrderSummary
	for row := range out {
		got = append(got, row)
	}
	assert.NoError(t, <-errc)
	assert.Equal(t, sc.DeliveredIDs, ids(got))
}

func TestPublishOrderSummariesCanceled(t *testing.T) {
	s := storetest.Open(t)
	now := time.Now()
	storetest.SeedMany(t, s, now, 1, 30)

	ctx, cancel := context.WithCancel(context.Background())
	q := mustQuery(t, now.AddDate(0, 0, -30), 0, 30)
	out, errc := s.Native().PublishOrderSummaries(ctx, q)

	<-out
	cancel()
	for range out {
	}

	err := <-errc
	require.Error(t, err)
	assert.Equal(t, models.KindCanceled, models.KindOf(err))
}

func TestOrderSummariesSequence(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())
	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 0, 10)

	var got []int64
	for row, err := range s.Native().OrderSummaries(context.Background(), q) {
		require.NoError(t, err)
		got = append(got, row.OrderID)
	}
	assert.Equal(t, sc.DeliveredIDs, got)

	// Breaking early releases the connection and yields nothing more.
	var first []int64
	for row, err := range s.Native().OrderSummaries(context.Background(), q) {
		require.NoError(t, err)
		first = append(first, row.OrderID)
		break
	}
	assert.Equal(t, sc.DeliveredIDs[:1], first)
	assert.Equal(t, 0, s.GetDB().Stats().InUse)
}

func TestParseRendering(t *testing.T) {
	r, err := store.ParseRendering("entity")
	require.NoError(t, err)
	assert.Equal(t, store.RenderingEntity, r)

	r, err = store.ParseRendering("native")
	require.NoError(t, err)
	assert.Equal(t, store.RenderingNative, r)

	for _, bad := range []string{"", "Native", "jpa"} {
		_, err := store.ParseRendering(bad)
		assert.Error(t, err, bad)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := storetest.Open(t)
	sc := storetest.SeedScenario(t, s, time.Now())
	require.NoError(t, s.Close())

	q := mustQuery(t, sc.Now.AddDate(0, 0, -30), 0, 10)
	_, err := s.Native().CountOrderSummaries(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, models.KindStoreUnavailable, models.KindOf(err))
}

func TestPostgresIntegration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}

	s, err := store.NewStore(store.Options{
		Driver:          "pgx",
		URL:             url,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	q := mustQuery(t, time.Now().AddDate(0, 0, -30), 0, 10)
	ctx := context.Background()

	native, err := s.Native().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	entity, err := s.Entity().FindOrderSummaries(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, ids(native), ids(entity))
}
