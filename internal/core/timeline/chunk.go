package timeline

import "math"

const (
	hourSeconds = 3600
	maxDayHours = 24
)

// ChunkedRange 任意时间段按小时切分的结果
type ChunkedRange struct {
	Start  float64     `json:"start"`
	End    float64     `json:"end"`
	Ranges []TimeRange `json:"ranges"`
}

// ChunkDay 将一天内的时间段按整点切分，便于前端逐小时加载
// 最多切 24 段，之后追加一段 [最后边界, floor(before)] 承接剩余部分，该段可能为零宽
// 所有分段都不会越过当前时刻
func (c Core) ChunkDay(r TimeRange) []TimeRange {
	now, endOfHour := c.bounds()

	data := make([]TimeRange, 0, maxDayHours+1)
	start := float64(c.HourStart(r.After))
	cursor := start
	for range maxDayHours {
		cursor += hourSeconds
		if cursor > endOfHour || cursor > r.Before {
			break
		}
		data = append(data, TimeRange{After: start, Before: math.Min(cursor, now)})
		start = cursor
	}

	after := math.Min(start, now)
	before := math.Max(after, math.Min(math.Floor(r.Before), now))
	return append(data, TimeRange{After: after, Before: before})
}

// ChunkArbitrary 将 [start, end] 按整点切分，直到覆盖 end 或到达当前小时末尾
func (c Core) ChunkArbitrary(start, end float64) ChunkedRange {
	now, endOfHour := c.bounds()

	ranges := make([]TimeRange, 0, 8)
	begin := float64(c.HourStart(start))
	cursor := begin
	var last float64
	for last < end {
		cursor += hourSeconds
		if cursor > endOfHour {
			break
		}
		last = math.Min(cursor, now)
		ranges = append(ranges, TimeRange{After: begin, Before: last})
		begin = cursor
	}
	return ChunkedRange{Start: start, End: end, Ranges: ranges}
}

// bounds 返回当前时刻与当前小时的结束时刻
func (c Core) bounds() (now, endOfHour float64) {
	now = toSeconds(c.clock.Now())
	return now, float64(c.HourStart(now) + hourSeconds)
}
