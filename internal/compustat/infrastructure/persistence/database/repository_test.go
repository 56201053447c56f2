package database

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/datacollector/internal/compustat/application"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/pkg/cache"
	"github.com/wyfcoding/datacollector/pkg/db"
	"github.com/wyfcoding/datacollector/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// openTestDB 打开内存 SQLite，driver 决定 ReadSession 走只读事务还是普通会话
func openTestDB(t *testing.T, driver string, m *metrics.Metrics) *db.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// 内存库按连接隔离
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&IdxIndexPO{}, &IdxDailyPO{}, &IdxcstHisPO{}))
	seed(t, gdb)

	return db.Wrap(gdb, driver, db.BreakerConfig{}, m).
		WithRetry(db.RetryPolicy{Attempts: 3, Sleep: time.Millisecond})
}

func seed(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	require.NoError(t, gdb.Create(&IdxIndexPO{
		Gvkeyx: "000003", Conm: "S&P 500 Comp-Ltd", Indexcat: "LGCAP", Tic: "I0003",
	}).Error)

	// 故意乱序写入
	require.NoError(t, gdb.Create([]IdxDailyPO{
		{Gvkeyx: "000003", Datadate: day("2020-01-03"), Prccd: decimal.NewNullDecimal(decimal.RequireFromString("3234.85"))},
		{Gvkeyx: "000003", Datadate: day("2020-01-01"), Prccd: decimal.NewNullDecimal(decimal.RequireFromString("3230.78"))},
		{Gvkeyx: "000003", Datadate: day("2020-01-02"), Prccd: decimal.NewNullDecimal(decimal.RequireFromString("3257.85"))},
		{Gvkeyx: "000010", Datadate: day("1990-01-02")},
	}).Error)

	thru := day("2010-06-30")
	require.NoError(t, gdb.Create([]IdxcstHisPO{
		{Gvkey: "012141", Iid: "01", Gvkeyx: "000003", From: day("2001-01-02")},
		{Gvkey: "001690", Iid: "01", Gvkeyx: "000003", From: day("2012-03-01")},
		{Gvkey: "001690", Iid: "01", Gvkeyx: "000003", From: day("1982-11-30"), Thru: &thru},
		{Gvkey: "001690", Iid: "01", Gvkeyx: "000010", From: day("1990-01-01")},
	}).Error)
}

func forEachSession(t *testing.T, fn func(t *testing.T, conn *db.DB)) {
	for _, driver := range []string{"postgres", "clickhouse"} {
		t.Run(driver, func(t *testing.T) {
			fn(t, openTestDB(t, driver, nil))
		})
	}
}

func TestIndexRepository_FindIndex(t *testing.T) {
	forEachSession(t, func(t *testing.T, conn *db.DB) {
		repo := NewIndexRepository(conn)

		rec, err := repo.FindIndex(context.Background(), "000003")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "S&P 500 Comp-Ltd", rec.Conm)
		assert.Equal(t, "I0003", rec.Tic)

		missing, err := repo.FindIndex(context.Background(), "999999")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestIndexRepository_FirstDailyIsMinimumDate(t *testing.T) {
	forEachSession(t, func(t *testing.T, conn *db.DB) {
		repo := NewIndexRepository(conn)

		first, err := repo.FirstDaily(context.Background(), "000003")
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "2020-01-01", first.Datadate.Format(time.DateOnly))
		assert.True(t, first.Prccd.Decimal.Equal(decimal.RequireFromString("3230.78")))

		none, err := repo.FirstDaily(context.Background(), "999999")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestIndexRepository_CalendarAndPrices(t *testing.T) {
	forEachSession(t, func(t *testing.T, conn *db.DB) {
		repo := NewIndexRepository(conn)
		ctx := context.Background()

		dates, err := repo.CalendarDates(ctx, "000003")
		require.NoError(t, err)
		got := make([]string, len(dates))
		for i, d := range dates {
			got[i] = d.Format(time.DateOnly)
		}
		assert.ElementsMatch(t, []string{"2020-01-01", "2020-01-02", "2020-01-03"}, got)

		prices, err := repo.DailyPrices(ctx, "000003")
		require.NoError(t, err)
		require.Len(t, prices, 3)
		assert.Equal(t, "2020-01-01", prices[0].Datadate.Format(time.DateOnly))
		assert.Equal(t, "2020-01-03", prices[2].Datadate.Format(time.DateOnly))

		noPrices, err := repo.DailyPrices(ctx, "000010")
		require.NoError(t, err)
		require.Len(t, noPrices, 1)
		assert.False(t, noPrices[0].Prccd.Valid)
	})
}

func TestIndexRepository_ConstituentsOrderedByGvkeyAndFrom(t *testing.T) {
	forEachSession(t, func(t *testing.T, conn *db.DB) {
		rows, err := NewIndexRepository(conn).Constituents(context.Background(), "000003")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, "001690", rows[0].Gvkey)
		assert.Equal(t, "1982-11-30", rows[0].From.Format(time.DateOnly))
		require.NotNil(t, rows[0].Thru)
		assert.Equal(t, "2010-06-30", rows[0].Thru.Format(time.DateOnly))

		assert.Equal(t, "001690", rows[1].Gvkey)
		assert.Equal(t, "2012-03-01", rows[1].From.Format(time.DateOnly))
		assert.Nil(t, rows[1].Thru)

		assert.Equal(t, "012141", rows[2].Gvkey)
		assert.Equal(t, "000003", rows[2].Gvkeyx)
	})
}

func TestCompustatIndex_AgainstDatabase(t *testing.T) {
	m := metrics.New("test")
	conn := openTestDB(t, "postgres", m)
	repo := NewIndexRepository(conn)
	ctx := context.Background()

	_, err := application.NewCompustatIndex(ctx, "999999", repo, cache.NewMemoryStore(), index.DefaultOptions(), m)
	assert.ErrorIs(t, err, index.ErrNotFound)
	// 未找到不重试
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueries.WithLabelValues("idx_index.first", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBRetries.WithLabelValues("idx_index.first")))

	idx, err := application.NewCompustatIndex(ctx, "000003", repo, cache.NewMemoryStore(), index.DefaultOptions(), m)
	require.NoError(t, err)
	start, err := idx.BenchStartDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", start.Format(time.DateOnly))
}
