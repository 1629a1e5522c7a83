package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gowvp/review/internal/core/event"
	"github.com/gowvp/review/internal/core/event/store/eventdb"
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 2024-05-10 10:00:00 UTC
const baseHour = 1715335200.0

func newTestCore(t *testing.T, opts ...event.Option) event.Core {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	engine := timeline.NewCore(
		timeline.WithClock(timeline.FixedClock(time.Unix(int64(baseHour), 0).Add(48*time.Hour))),
		timeline.WithLocation(time.UTC),
	)
	opts = append([]event.Option{event.WithTimeline(engine)}, opts...)
	return event.NewCore(eventdb.NewDB(db).AutoMigrate(true), opts...)
}

func seed(t *testing.T, core event.Core) {
	t.Helper()
	n, err := core.AddEvents(context.Background(), []event.AddEventInput{
		{Camera: "front", SourceID: "car1", ClassType: "visible", Timestamp: baseHour + 10},
		{Camera: "front", SourceID: "car1", ClassType: "entered_zone", Timestamp: baseHour + 20, Data: map[string]any{"zone": "drive"}},
		{Camera: "front", SourceID: "car1", ClassType: "gone", Timestamp: baseHour + 60},
		{Camera: "front", SourceID: "p1", ClassType: "heard", Timestamp: baseHour + 500},
		{Camera: "back", SourceID: "dog", ClassType: "active", Timestamp: baseHour + 30},
		{Camera: "back", SourceID: "dog", ClassType: "attribute", Timestamp: baseHour + 3600 + 5},
	})
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestAddEventsValidates(t *testing.T) {
	core := newTestCore(t)
	_, err := core.AddEvents(context.Background(), []event.AddEventInput{{Camera: "front", Timestamp: baseHour}})
	require.Error(t, err)
	_, err = core.AddEvents(context.Background(), []event.AddEventInput{{Camera: "front", ClassType: "visible"}})
	require.Error(t, err)

	n, err := core.AddEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAddEventsGeneratesSourceID(t *testing.T) {
	core := newTestCore(t)
	_, err := core.AddEvents(context.Background(), []event.AddEventInput{
		{Camera: "front", ClassType: "heard", Timestamp: baseHour + 1},
	})
	require.NoError(t, err)

	page, total, err := core.FindHourly(context.Background(), &event.FindHourlyInput{
		PagerFilter: web.PagerFilter{Page: 1, Size: 10},
		After:       baseHour,
		Before:      baseHour + 3600,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	events := page[int64(baseHour)]
	require.Len(t, events, 1)
	require.Len(t, events[0].SourceID, 36)
}

func TestFindHourly(t *testing.T) {
	core := newTestCore(t)
	seed(t, core)

	page, total, err := core.FindHourly(context.Background(), &event.FindHourlyInput{
		PagerFilter: web.PagerFilter{Page: 1, Size: 10},
		After:       baseHour,
		Before:      baseHour + 2*3600,
		Cameras:     "front, back",
	})
	require.NoError(t, err)
	require.EqualValues(t, 6, total)
	require.Len(t, page[int64(baseHour)], 5)
	require.Len(t, page[int64(baseHour)+3600], 1)

	first := page[int64(baseHour)][0]
	require.Equal(t, "front", first.Camera)
	require.Equal(t, timeline.ClassVisible, first.ClassType)
	require.Equal(t, map[string]any{"zone": "drive"}, page[int64(baseHour)][1].Data)

	page, total, err = core.FindHourly(context.Background(), &event.FindHourlyInput{
		PagerFilter: web.PagerFilter{Page: 1, Size: 10},
		After:       baseHour,
		Before:      baseHour + 2*3600,
		Cameras:     "back",
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, 2, page.Len())

	_, _, err = core.FindHourly(context.Background(), &event.FindHourlyInput{After: 10, Before: 10})
	require.Error(t, err)
}

func TestCardsAcrossPages(t *testing.T) {
	ctx := context.Background()
	in := &event.CardsInput{After: baseHour, Before: baseHour + 2*3600, DetailLevel: "full"}

	// 每页 1 条与一次取完的结果一致
	paged := newTestCore(t, event.WithPageSize(1))
	seed(t, paged)
	got, err := paged.Cards(ctx, in)
	require.NoError(t, err)

	whole := newTestCore(t, event.WithPageSize(100))
	seed(t, whole)
	want, err := whole.Cards(ctx, in)
	require.NoError(t, err)
	require.Equal(t, want, got)

	day := want[int64(baseHour)-10*3600]
	require.Len(t, day, 2)
	hour := day[int64(baseHour)]
	// front: [10, 60] 一张，500 另起一张；back: 30 一张
	require.Len(t, hour, 3)
	front := hour[timeline.CardKey{Camera: "front", WindowStart: baseHour + 10}]
	require.NotNil(t, front)
	require.Len(t, front.Entries, 3)
}

func TestCardsDetailLevel(t *testing.T) {
	ctx := context.Background()
	core := newTestCore(t)
	seed(t, core)

	normal, err := core.Cards(ctx, &event.CardsInput{After: baseHour, Before: baseHour + 2*3600})
	require.NoError(t, err)
	full, err := core.Cards(ctx, &event.CardsInput{After: baseHour, Before: baseHour + 2*3600, DetailLevel: "full"})
	require.NoError(t, err)
	require.Equal(t, full.Len(), normal.Len())

	front := normal[int64(baseHour)-10*3600][int64(baseHour)][timeline.CardKey{Camera: "front", WindowStart: baseHour + 10}]
	require.Len(t, front.Entries, 1)
	require.Equal(t, timeline.ClassEnteredZone, front.Entries[0].ClassType)

	_, err = core.Cards(ctx, &event.CardsInput{After: baseHour, Before: baseHour + 60, DetailLevel: "verbose"})
	require.Error(t, err)
}

func TestCardsDefaultLevelFromOption(t *testing.T) {
	ctx := context.Background()
	core := newTestCore(t, event.WithDetailLevel(timeline.DetailFull))
	seed(t, core)

	out, err := core.Cards(ctx, &event.CardsInput{After: baseHour, Before: baseHour + 3600})
	require.NoError(t, err)
	front := out[int64(baseHour)-10*3600][int64(baseHour)][timeline.CardKey{Camera: "front", WindowStart: baseHour + 10}]
	require.Len(t, front.Entries, 3)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	core := newTestCore(t)
	seed(t, core)

	// now = baseHour + 48h
	require.Zero(t, core.CleanupExpired(ctx, 3))
	require.Equal(t, 6, core.CleanupExpired(ctx, 1))

	_, total, err := core.FindHourly(ctx, &event.FindHourlyInput{
		PagerFilter: web.PagerFilter{Page: 1, Size: 10},
		After:       0,
		Before:      baseHour * 2,
	})
	require.NoError(t, err)
	require.Zero(t, total)
}
