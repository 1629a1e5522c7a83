package recording

import (
	"path/filepath"
	"strings"

	"github.com/gowvp/review/internal/conf"
	"github.com/gowvp/review/internal/core/timeline"
)

// Storer data persistence
type Storer interface {
	Recording() RecordingStorer
}

// Core business domain
type Core struct {
	store  Storer
	conf   *conf.ServerRecording
	engine timeline.Core
}

type Option func(*Core)

// WithConfig 注入录像配置
func WithConfig(conf *conf.ServerRecording) Option {
	return func(c *Core) {
		c.conf = conf
	}
}

// WithTimeline 注入时间轴引擎，决定时区与当前时间来源
func WithTimeline(engine timeline.Core) Option {
	return func(c *Core) {
		c.engine = engine
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{store: store, engine: timeline.NewCore()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// GetFullPath 获取录像文件的完整路径
// relativePath 可能是相对于 StorageDir 的路径，也可能是完整路径
func (c Core) GetFullPath(relativePath string) string {
	if c.conf == nil || c.conf.StorageDir == "" {
		return relativePath
	}
	if filepath.IsAbs(relativePath) || strings.HasPrefix(relativePath, c.conf.StorageDir) {
		return relativePath
	}
	return filepath.Join(c.conf.StorageDir, relativePath)
}
