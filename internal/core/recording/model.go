package recording

import (
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
)

// Recording 录像文件索引，一条记录对应流媒体切出的一个 MP4 片段
type Recording struct {
	ID         int64    `gorm:"primaryKey" json:"id"`
	CID        string   `gorm:"column:cid;index;notNull;default:''" json:"cid"`        // 通道 ID
	App        string   `gorm:"column:app;notNull;default:''" json:"app"`              // 流媒体应用名
	Stream     string   `gorm:"column:stream;notNull;default:''" json:"stream"`        // 流 ID
	StartedAt  orm.Time `gorm:"column:started_at;index;notNull" json:"started_at"`     // 片段开始时间
	EndedAt    orm.Time `gorm:"column:ended_at;notNull" json:"ended_at"`               // 片段结束时间
	Duration   float64  `gorm:"column:duration;notNull;default:0" json:"duration"`     // 时长（秒）
	Path       string   `gorm:"column:path;notNull;default:''" json:"path"`            // 相对 StorageDir 的路径
	Size       int64    `gorm:"column:size;notNull;default:0" json:"size"`             // 文件大小（字节）
	DeleteFlag bool     `gorm:"column:delete_flag;notNull;default:false" json:"delete_flag"` // 即将被清理
	CreatedAt  orm.Time `gorm:"column:created_at;notNull" json:"created_at"`
}

func (*Recording) TableName() string {
	return "recordings"
}

// Segment 转换为时间轴片段（Unix 秒）
func (r *Recording) Segment() timeline.Segment {
	return timeline.Segment{
		StartTime: float64(r.StartedAt.UnixMilli()) / 1000,
		EndTime:   float64(r.EndedAt.UnixMilli()) / 1000,
	}
}
