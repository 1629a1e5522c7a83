package event

import "github.com/gowvp/review/internal/core/timeline"

// DefaultPageSize 生成卡片时每次分页拉取的事件数
const DefaultPageSize = 500

// Storer data persistence
type Storer interface {
	Event() EventStorer
}

// Core business domain
type Core struct {
	store    Storer
	engine   timeline.Core
	pageSize int
	level    timeline.DetailLevel
}

type Option func(*Core)

// WithTimeline 注入时间轴引擎
func WithTimeline(engine timeline.Core) Option {
	return func(c *Core) {
		c.engine = engine
	}
}

// WithPageSize 分页大小，<=0 时忽略
func WithPageSize(size int) Option {
	return func(c *Core) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithDetailLevel 请求未指定详细程度时使用
func WithDetailLevel(level timeline.DetailLevel) Option {
	return func(c *Core) {
		c.level = level
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{
		store:    store,
		engine:   timeline.NewCore(),
		pageSize: DefaultPageSize,
		level:    timeline.DetailNormal,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
