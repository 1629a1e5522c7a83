package event

import (
	"encoding/json"
	"log/slog"

	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
)

// Event 追踪对象的生命周期事件，由分析服务回调写入
type Event struct {
	ID        int64    `gorm:"primaryKey" json:"id"`
	CID       string   `gorm:"column:cid;index:idx_events_cid_ts,priority:1;notNull;default:''" json:"cid"` // 通道 ID
	SourceID  string   `gorm:"column:source_id;notNull;default:''" json:"source_id"`                        // 追踪对象 ID
	ClassType string   `gorm:"column:class_type;notNull;default:''" json:"class_type"`
	Timestamp float64  `gorm:"column:ts;index:idx_events_cid_ts,priority:2;notNull" json:"timestamp"` // Unix 秒
	Data      string   `gorm:"column:data;type:text;notNull;default:''" json:"-"`                            // JSON
	CreatedAt orm.Time `gorm:"column:created_at;notNull" json:"created_at"`
}

func (*Event) TableName() string {
	return "lifecycle_events"
}

// Lifecycle 转换为时间轴事件，Data 解析失败时丢弃附加数据
func (e *Event) Lifecycle() timeline.LifecycleEvent {
	out := timeline.LifecycleEvent{
		Timestamp: e.Timestamp,
		Camera:    e.CID,
		SourceID:  e.SourceID,
		ClassType: timeline.ClassType(e.ClassType),
	}
	if e.Data != "" {
		if err := json.Unmarshal([]byte(e.Data), &out.Data); err != nil {
			slog.Warn("decode event data", "id", e.ID, "err", err)
			out.Data = nil
		}
	}
	return out
}
