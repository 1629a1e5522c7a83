package timeline

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var baseHour = time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

func ev(offset float64, camera, source string, class ClassType) LifecycleEvent {
	return LifecycleEvent{
		Timestamp: unix(baseHour) + offset,
		Camera:    camera,
		SourceID:  source,
		ClassType: class,
	}
}

// page 按所在整点分桶，模拟事件服务的分页返回
func page(c Core, events ...LifecycleEvent) HourlyPage {
	p := make(HourlyPage)
	for _, e := range events {
		h := c.HourStart(e.Timestamp)
		p[h] = append(p[h], e)
	}
	return p
}

func onlyHour(t *testing.T, data CardsData) HourCards {
	t.Helper()
	require.Len(t, data, 1)
	for _, day := range data {
		require.Len(t, day, 1)
		for _, hour := range day {
			return hour
		}
	}
	return nil
}

func classes(card *Card) []ClassType {
	out := make([]ClassType, 0, len(card.Entries))
	for _, e := range card.Entries {
		out = append(out, e.ClassType)
	}
	return out
}

func TestBuildCardsWindowClosure(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))

	t.Run("119 seconds share a card", func(t *testing.T) {
		data := c.BuildCards([]HourlyPage{page(c,
			ev(100, "front", "a", ClassEnteredZone),
			ev(219, "front", "b", ClassHeard),
		)}, DetailNormal)

		cards := onlyHour(t, data)
		require.Len(t, cards, 1)
		card := cards[CardKey{Camera: "front", WindowStart: unix(baseHour) + 100}]
		require.NotNil(t, card)
		require.Equal(t, []ClassType{ClassEnteredZone, ClassHeard}, classes(card))
		require.Equal(t, unix(baseHour)+100, card.Time)
	})

	t.Run("120 seconds share a card", func(t *testing.T) {
		data := c.BuildCards([]HourlyPage{page(c,
			ev(100, "front", "a", ClassEnteredZone),
			ev(220, "front", "b", ClassHeard),
		)}, DetailNormal)
		require.Len(t, onlyHour(t, data), 1)
	})

	t.Run("121 seconds split", func(t *testing.T) {
		data := c.BuildCards([]HourlyPage{page(c,
			ev(100, "front", "a", ClassEnteredZone),
			ev(221, "front", "b", ClassHeard),
		)}, DetailNormal)

		cards := onlyHour(t, data)
		require.Len(t, cards, 2)
		require.Contains(t, cards, CardKey{Camera: "front", WindowStart: unix(baseHour) + 100})
		require.Contains(t, cards, CardKey{Camera: "front", WindowStart: unix(baseHour) + 221})
	})
}

func TestBuildCardsWindowsAreCameraLocal(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	data := c.BuildCards([]HourlyPage{page(c,
		ev(0, "front", "a", ClassEnteredZone),
		ev(100, "back", "b", ClassEnteredZone),
		ev(110, "front", "a", ClassHeard),
		ev(230, "back", "b", ClassHeard),
		ev(235, "front", "c", ClassExternal),
	)}, DetailNormal)

	cards := onlyHour(t, data)
	want := map[CardKey][]ClassType{
		{Camera: "front", WindowStart: unix(baseHour)}:       {ClassEnteredZone, ClassHeard},
		{Camera: "back", WindowStart: unix(baseHour) + 100}:  {ClassEnteredZone},
		{Camera: "back", WindowStart: unix(baseHour) + 230}:  {ClassHeard},
		{Camera: "front", WindowStart: unix(baseHour) + 235}: {ClassExternal},
	}
	require.Len(t, cards, len(want))
	for key, types := range want {
		require.Contains(t, cards, key)
		require.Equal(t, types, classes(cards[key]), key.String())
		for _, e := range cards[key].Entries {
			require.Equal(t, key.Camera, e.Camera)
		}
	}
}

func TestBuildCardsDetailLevels(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	events := []LifecycleEvent{
		ev(0, "front", "a", ClassVisible),
		ev(5, "front", "a", ClassActive),
		ev(10, "front", "a", ClassEnteredZone),
		ev(20, "front", "b", ClassVisible),
		ev(30, "front", "a", ClassGone),
		ev(40, "front", "a", ClassStationary),
	}
	key := CardKey{Camera: "front", WindowStart: unix(baseHour)}

	tests := []struct {
		level DetailLevel
		want  []ClassType
	}{
		{DetailNormal, []ClassType{ClassEnteredZone}},
		{DetailExtra, []ClassType{ClassActive, ClassEnteredZone, ClassStationary}},
		{DetailFull, []ClassType{ClassVisible, ClassActive, ClassEnteredZone, ClassVisible, ClassGone, ClassStationary}},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			cards := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, tt.level))
			require.Equal(t, tt.want, classes(cards[key]))
		})
	}
}

func TestBuildCardsAllSuppressedKeepsOne(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	key := CardKey{Camera: "front", WindowStart: unix(baseHour)}

	t.Run("one per source, prefers class kept by extra", func(t *testing.T) {
		events := []LifecycleEvent{
			ev(0, "front", "a", ClassVisible),
			ev(3, "front", "a", ClassActive),
			ev(6, "front", "b", ClassVisible),
			ev(9, "front", "b", ClassActive),
		}
		normal := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, DetailNormal))
		require.Equal(t, []LifecycleEvent{events[1], events[3]}, normal[key].Entries)
		require.Equal(t, []string{"a-active", "b-active"}, normal[key].UniqueKeys)

		extra := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, DetailExtra))
		require.Equal(t, []LifecycleEvent{events[1], events[3]}, extra[key].Entries)
	})

	t.Run("quiet source survives next to a kept one", func(t *testing.T) {
		events := []LifecycleEvent{
			ev(0, "front", "car", ClassEnteredZone),
			ev(5, "front", "person", ClassVisible),
			ev(9, "front", "person", ClassActive),
		}
		tests := []struct {
			level DetailLevel
			want  []LifecycleEvent
		}{
			{DetailNormal, []LifecycleEvent{events[0], events[2]}},
			{DetailExtra, []LifecycleEvent{events[0], events[2]}},
			{DetailFull, events},
		}
		for _, tt := range tests {
			cards := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, tt.level))
			require.Len(t, cards, 1)
			require.Equal(t, tt.want, cards[key].Entries, tt.level)
		}
	})

	t.Run("earliest when equally suppressed", func(t *testing.T) {
		events := []LifecycleEvent{
			ev(0, "front", "a", ClassGone),
			ev(4, "front", "a", ClassVisible),
			ev(8, "front", "a", ClassAttribute),
		}
		for _, level := range []DetailLevel{DetailNormal, DetailExtra} {
			cards := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, level))
			require.Equal(t, []LifecycleEvent{events[0]}, cards[key].Entries, level)
			require.Equal(t, []string{"a-gone"}, cards[key].UniqueKeys)
		}
	})
}

func TestBuildCardsDedup(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	key := CardKey{Camera: "front", WindowStart: unix(baseHour)}
	events := []LifecycleEvent{
		ev(0, "front", "a", ClassEnteredZone),
		ev(10, "front", "a", ClassEnteredZone),
		ev(20, "front", "b", ClassEnteredZone),
	}

	normal := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, DetailNormal))
	require.Equal(t, []string{"a-entered_zone", "b-entered_zone"}, normal[key].UniqueKeys)
	require.Len(t, normal[key].Entries, 2)

	full := onlyHour(t, c.BuildCards([]HourlyPage{page(c, events...)}, DetailFull))
	require.Equal(t, []string{"a-entered_zone", "a-entered_zone", "b-entered_zone"}, full[key].UniqueKeys)
	require.Len(t, full[key].Entries, 3)
}

func TestBuildCardsDayAndHourKeys(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	late := time.Date(2024, 5, 10, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 5, 11, 0, 10, 0, 0, time.UTC)

	data := c.BuildCards([]HourlyPage{page(c,
		LifecycleEvent{Timestamp: unix(late), Camera: "front", SourceID: "a", ClassType: ClassHeard},
		LifecycleEvent{Timestamp: unix(early), Camera: "front", SourceID: "a", ClassType: ClassHeard},
	)}, DetailNormal)

	day1 := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC).Unix()
	require.Len(t, data, 2)
	require.Contains(t, data[day1], time.Date(2024, 5, 10, 23, 0, 0, 0, time.UTC).Unix())
	require.Contains(t, data[day2], time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC).Unix())
	require.Equal(t, 2, data.Len())
}

func TestBuildCardsMergesPagesIdempotently(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	all := []LifecycleEvent{
		ev(0, "front", "a", ClassVisible),
		ev(30, "front", "a", ClassEnteredZone),
		ev(60, "back", "b", ClassHeard),
		ev(60, "back", "c", ClassHeard),
		ev(200, "front", "a", ClassActive),
		ev(3700, "front", "d", ClassExternal),
	}
	// 同一小时的事件分散在多页中
	p1 := page(c, all[4], all[0], all[5])
	p2 := page(c, all[3], all[1])
	p3 := page(c, all[2])

	for _, level := range []DetailLevel{DetailNormal, DetailExtra, DetailFull} {
		first := c.BuildCards([]HourlyPage{p1, p2, p3}, level)
		second := c.BuildCards([]HourlyPage{p3, p1, p2}, level)
		third := c.BuildCards([]HourlyPage{page(c, all...)}, level)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s: page order changed result (-first +second):\n%s", level, diff)
		}
		if diff := cmp.Diff(first, third); diff != "" {
			t.Fatalf("%s: paging changed result (-paged +single):\n%s", level, diff)
		}
	}

	// 输入分页不被修改
	require.Equal(t, all[4], p1[c.HourStart(all[4].Timestamp)][0])
}

func TestBuildCardsTieBreakOnData(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	key := CardKey{Camera: "front", WindowStart: unix(baseHour) + 10}

	face := ev(10, "front", "car", ClassAttribute)
	face.Data = map[string]any{"attribute": "face"}
	plate := ev(10, "front", "car", ClassAttribute)
	plate.Data = map[string]any{"attribute": "license_plate"}
	p1, p2 := page(c, plate), page(c, face)

	for _, level := range []DetailLevel{DetailNormal, DetailExtra, DetailFull} {
		first := c.BuildCards([]HourlyPage{p1, p2}, level)
		second := c.BuildCards([]HourlyPage{p2, p1}, level)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Fatalf("%s: page order changed result (-first +second):\n%s", level, diff)
		}
		require.Equal(t, face, onlyHour(t, first)[key].Entries[0], level)
	}
}

func TestMergePagesSortsByTimestamp(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	hour := c.HourStart(unix(baseHour))
	merged := MergePages([]HourlyPage{
		{hour: {ev(50, "front", "a", ClassHeard), ev(10, "front", "a", ClassHeard)}},
		{hour: {ev(30, "front", "b", ClassHeard)}},
	})
	require.Len(t, merged[hour], 3)
	for i := 1; i < len(merged[hour]); i++ {
		require.LessOrEqual(t, merged[hour][i-1].Timestamp, merged[hour][i].Timestamp)
	}
}

func TestBuildCardsDetailLevelsAreNested(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	types := []ClassType{
		ClassVisible, ClassActive, ClassStationary, ClassAttribute,
		ClassGone, ClassEnteredZone, ClassHeard, ClassExternal,
	}
	cameras := []string{"front", "back", "garage"}
	rng := rand.New(rand.NewPCG(7, 11))

	for round := range 50 {
		events := make([]LifecycleEvent, 0, 80)
		for i := range 80 {
			events = append(events, LifecycleEvent{
				Timestamp: unix(baseHour) + float64(rng.IntN(7200)) + float64(i)/100,
				Camera:    cameras[rng.IntN(len(cameras))],
				SourceID:  fmt.Sprintf("obj%d", rng.IntN(6)),
				ClassType: types[rng.IntN(len(types))],
			})
		}
		pages := []HourlyPage{page(c, events...)}

		normal := entrySet(c.BuildCards(pages, DetailNormal))
		extra := entrySet(c.BuildCards(pages, DetailExtra))
		full := entrySet(c.BuildCards(pages, DetailFull))

		require.Len(t, full, len(events), "round %d", round)
		for e := range normal {
			require.Contains(t, extra, e, "round %d: normal not subset of extra", round)
		}
		for e := range extra {
			require.Contains(t, full, e, "round %d: extra not subset of full", round)
		}

		// 每个窗口至少保留一条
		require.Equal(t, c.BuildCards(pages, DetailFull).Len(), c.BuildCards(pages, DetailNormal).Len(), "round %d", round)
	}
}

func entrySet(data CardsData) map[string]struct{} {
	out := make(map[string]struct{})
	for _, day := range data {
		for _, hour := range day {
			for key, card := range hour {
				if len(card.Entries) == 0 {
					panic("empty card " + key.String())
				}
				for _, e := range card.Entries {
					out[fmt.Sprintf("%v|%s|%s|%s", e.Timestamp, e.Camera, e.SourceID, e.ClassType)] = struct{}{}
				}
			}
		}
	}
	return out
}

func TestCardsDataJSON(t *testing.T) {
	c := NewCore(WithLocation(time.UTC))
	data := c.BuildCards([]HourlyPage{page(c, ev(0, "front-door", "a", ClassHeard))}, DetailNormal)

	b, err := json.Marshal(data)
	require.NoError(t, err)

	day := c.DayStart(unix(baseHour))
	hour := c.HourStart(unix(baseHour))
	want := fmt.Sprintf(`{"%d":{"%d":{"front-door-%d":{"camera":"front-door","time":%d,"entries":[{"timestamp":%d,"camera":"front-door","source_id":"a","class_type":"heard"}],"uniqueKeys":["a-heard"]}}}}`,
		day, hour, hour, hour, hour)
	require.JSONEq(t, want, string(b))

	var key CardKey
	require.NoError(t, key.UnmarshalText([]byte(fmt.Sprintf("front-door-%d", hour))))
	require.Equal(t, CardKey{Camera: "front-door", WindowStart: float64(hour)}, key)
	require.Error(t, key.UnmarshalText([]byte("nodash")))
}

func TestParseDetailLevel(t *testing.T) {
	for in, want := range map[string]DetailLevel{
		"":        DetailNormal,
		"normal":  DetailNormal,
		" Extra ": DetailExtra,
		"FULL":    DetailFull,
	} {
		got, err := ParseDetailLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := ParseDetailLevel("verbose")
	require.Error(t, err)
}
