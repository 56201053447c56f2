package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/internal/panoramic/domain"
	"github.com/wyfcoding/datacollector/pkg/cache"
)

func day(s string) time.Time {
	t, err := time.Parse(index.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		out = append(out, day(s))
	}
	return out
}

type fakeAttributes struct {
	data  map[string]map[string][]time.Time
	calls int
}

func (f *fakeAttributes) ValidDates(_ context.Context, af *domain.AttributeFilter, gvkeys []string) (map[string][]time.Time, error) {
	f.calls++
	out := map[string][]time.Time{}
	for _, g := range gvkeys {
		if d, ok := f.data[af.Attribute][g]; ok {
			out[g] = d
		}
	}
	return out, nil
}

type fakeUniverse []domain.Security

func (u fakeUniverse) Universe(context.Context) ([]domain.Security, error) { return u, nil }

type fakeCalendar []time.Time

func (c fakeCalendar) CalendarList(context.Context) ([]time.Time, error) { return c, nil }

var calendar = fakeCalendar(days("2020-01-06", "2020-01-02", "2020-01-03", "2020-01-07", "2020-01-08"))

func newPano(t *testing.T, f domain.Filter, attrs *fakeAttributes, universe fakeUniverse) *PanoIndex {
	t.Helper()
	p, err := NewPanoIndex("cheap_stocks", f, index.DefaultOptions(), Deps{
		Attributes: attrs,
		Universe:   universe,
		Calendar:   calendar,
		Cache:      cache.NewMemoryStore(),
	})
	require.NoError(t, err)
	return p
}

func leaf(t *testing.T, att string) *domain.AttributeFilter {
	t.Helper()
	f, err := domain.NewAttributeFilter(att)
	require.NoError(t, err)
	return f
}

func TestMemberships(t *testing.T) {
	cal := days("2020-01-01", "2020-01-02", "2020-01-03", "2020-01-04", "2020-01-05")
	sec := domain.Security{Gvkey: "001690", Iid: "01"}

	rows := Memberships(sec, "pano", days("2020-01-01", "2020-01-02", "2020-01-04"), cal)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].From.Equal(day("2020-01-01")))
	require.NotNil(t, rows[0].Thru)
	assert.True(t, rows[0].Thru.Equal(day("2020-01-02")))
	assert.True(t, rows[1].From.Equal(day("2020-01-04")))
	require.NotNil(t, rows[1].Thru)
	assert.True(t, rows[1].Thru.Equal(day("2020-01-04")))
	assert.Equal(t, "pano", rows[0].Gvkeyx)

	// 延续到日历末尾的区间没有结束日
	rows = Memberships(sec, "pano", days("2020-01-04", "2020-01-05"), cal)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Thru)

	// 日历外的日期被忽略
	assert.Empty(t, Memberships(sec, "pano", days("2019-12-31"), cal))
	assert.Empty(t, Memberships(sec, "pano", nil, cal))
}

func TestNewPanoIndex_Validation(t *testing.T) {
	_, err := NewPanoIndex("", leaf(t, "t.a"), index.DefaultOptions(), Deps{})
	assert.ErrorIs(t, err, index.ErrValidation)

	_, err = NewPanoIndex("x", nil, index.DefaultOptions(), Deps{})
	assert.ErrorIs(t, err, index.ErrValidation)

	_, err = NewPanoIndex("x", leaf(t, "t.a"), index.DefaultOptions(), Deps{})
	assert.Error(t, err)
}

func TestPanoIndex_FlagEncodesFilter(t *testing.T) {
	a := newPano(t, leaf(t, "t.a"), &fakeAttributes{}, nil)
	b := newPano(t, leaf(t, "t.b"), &fakeAttributes{}, nil)

	assert.True(t, strings.HasPrefix(a.Flag("new_companies"), "pano_index_cheap_stocks-"))
	assert.True(t, strings.HasSuffix(a.Flag("new_companies"), "_new_companies"))
	assert.NotEqual(t, a.Flag("new_companies"), b.Flag("new_companies"))
}

func TestPanoIndex_Calendar(t *testing.T) {
	p := newPano(t, leaf(t, "t.a"), &fakeAttributes{}, nil)

	dates, err := p.CalendarList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, days("2020-01-02", "2020-01-03", "2020-01-06", "2020-01-07", "2020-01-08"), dates)

	start, err := p.BenchStartDate(context.Background())
	require.NoError(t, err)
	assert.True(t, start.Equal(day("2020-01-02")))
}

func TestPanoIndex_NewCompanies(t *testing.T) {
	attrs := &fakeAttributes{data: map[string]map[string][]time.Time{
		"sec_dprc.prccd": {
			"001690": days("2020-01-02", "2020-01-03", "2020-01-07", "2020-01-08"),
			"012141": days("2020-01-03"),
		},
		"security.exchg": {
			"001690": days("2020-01-02", "2020-01-03", "2020-01-06", "2020-01-07", "2020-01-08"),
			"012141": days("2020-01-02", "2020-01-03"),
		},
	}}
	universe := fakeUniverse{
		{Gvkey: "001690", Iid: "01"},
		{Gvkey: "012141", Iid: "01"},
		{Gvkey: "012141", Iid: "02"},
		{Gvkey: "099999", Iid: "01"},
	}
	f := domain.And(leaf(t, "sec_dprc.prccd"), leaf(t, "security.exchg"))
	p := newPano(t, f, attrs, universe)

	rows, err := p.NewCompanies(context.Background())
	require.NoError(t, err)

	var got []string
	for _, r := range rows {
		thru := "open"
		if r.Thru != nil {
			thru = r.Thru.Format(index.DateLayout)
		}
		got = append(got, r.Symbol()+" "+r.From.Format(index.DateLayout)+" "+thru)
	}
	assert.Equal(t, []string{
		"001690_01 2020-01-02 2020-01-03",
		"001690_01 2020-01-07 open",
		"012141_01 2020-01-03 2020-01-03",
		"012141_02 2020-01-03 2020-01-03",
	}, got)

	_, err = p.NewCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attrs.calls)
}

func TestPanoIndex_NoMatchIsNotFound(t *testing.T) {
	p := newPano(t, leaf(t, "t.a"), &fakeAttributes{}, fakeUniverse{{Gvkey: "001690", Iid: "01"}})

	_, err := p.NewCompanies(context.Background())
	assert.ErrorIs(t, err, index.ErrNotFound)
}
