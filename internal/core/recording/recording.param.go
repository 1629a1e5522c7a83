package recording

import (
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

type FindRecordingInput struct {
	web.PagerFilter
	CID    string  `form:"cid"`    // 通道 ID
	App    string  `form:"app"`    // 流媒体应用名
	Stream string  `form:"stream"` // 流 ID
	Start  float64 `form:"start"`  // Unix 秒，与 End 同时传入时生效
	End    float64 `form:"end"`
}

type AddRecordingInput struct {
	CID       string   `json:"cid" binding:"required"`
	App       string   `json:"app"`
	Stream    string   `json:"stream"`
	StartedAt orm.Time `json:"started_at"` // 录像开始时间
	EndedAt   orm.Time `json:"ended_at"`   // 录像结束时间
	Duration  float64  `json:"duration"`   // 持续时长（秒）
	Path      string   `json:"path"`       // 文件相对路径
	Size      int64    `json:"size"`       // 文件大小（字节）
}

// SegmentsInput 查询与时间窗口有重叠的录像片段
type SegmentsInput struct {
	CID   string  `form:"cid"`
	Start float64 `form:"start"` // Unix 秒
	End   float64 `form:"end"`
}

// SeekInput 在 [After, Before) 播放窗口内定位 Timestamp
type SeekInput struct {
	CID       string  `form:"cid"`
	After     float64 `form:"after"`
	Before    float64 `form:"before"`
	Timestamp float64 `form:"ts"`
}

// SeekOutput Found=false 表示该时刻不在拼接后的视频中
type SeekOutput struct {
	Found    bool    `json:"found"`
	Position float64 `json:"position"` // 播放器 seek 的秒数
	Inpoint  float64 `json:"inpoint"`  // 首段被裁掉的秒数
	Segments int     `json:"segments"`
}

// ChunkDayInput 一天内按小时切分
type ChunkDayInput struct {
	After  float64 `form:"after"`
	Before float64 `form:"before"`
}

// ChunkRangeInput 任意时间段按小时切分
type ChunkRangeInput struct {
	Start float64 `form:"start"`
	End   float64 `form:"end"`
}

type ChunkDayOutput struct {
	Items []timeline.TimeRange `json:"items"`
}

// MonthlyStatsInput 月度统计查询参数
type MonthlyStatsInput struct {
	CID   string `form:"cid"`   // 通道 ID（可选，不传则查所有通道）
	Year  int    `form:"year"`  // 年份，如 2024
	Month int    `form:"month"` // 月份，1-12
}

// MonthlyStatsOutput 月度统计输出
type MonthlyStatsOutput struct {
	Year     int    `json:"year"`      // 年份
	Month    int    `json:"month"`     // 月份
	Days     int    `json:"days"`      // 该月总天数
	HasVideo string `json:"has_video"` // 位图字符串，第 1 天有录像则第 1 位为 1
}
