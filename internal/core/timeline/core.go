package timeline

import "time"

// GroupSeconds 卡片分组窗口，同一通道相邻事件超过该间隔则开启新卡片
const GroupSeconds = 120

// Clock 当前时间来源，便于测试时固定 now
type Clock interface {
	Now() time.Time
}

// RealClock 系统时钟
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock 固定时间，用于测试或回放
type FixedClock time.Time

// Now implements Clock.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Core 录像/时间轴重建引擎，无状态，可并发调用
type Core struct {
	clock        Clock
	loc          *time.Location
	groupSeconds float64
}

type Option func(*Core)

// WithClock 注入时钟
func WithClock(clock Clock) Option {
	return func(c *Core) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLocation 按哪个时区计算整点与零点
func WithLocation(loc *time.Location) Option {
	return func(c *Core) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithGroupSeconds 修改卡片分组窗口，<=0 时忽略
func WithGroupSeconds(sec float64) Option {
	return func(c *Core) {
		if sec > 0 {
			c.groupSeconds = sec
		}
	}
}

// NewCore create timeline engine
func NewCore(opts ...Option) Core {
	c := Core{
		clock:        RealClock{},
		loc:          time.Local,
		groupSeconds: GroupSeconds,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Location 计算日/小时边界所用的时区
func (c Core) Location() *time.Location {
	return c.loc
}

// Now 当前时间
func (c Core) Now() time.Time {
	return c.clock.Now()
}

// HourStart 时间戳所在整点
func (c Core) HourStart(ts float64) int64 {
	t := unixTime(ts).In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, c.loc).Unix()
}

// DayStart 时间戳所在本地零点
func (c Core) DayStart(ts float64) int64 {
	t := unixTime(ts).In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc).Unix()
}

func unixTime(ts float64) time.Time {
	sec := int64(ts)
	if ts < 0 && float64(sec) != ts {
		sec--
	}
	return time.Unix(sec, 0)
}

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
