package event

import (
	"strings"

	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/web"
)

// AddEventInput 单条生命周期事件
type AddEventInput struct {
	Camera    string         `json:"camera"`
	SourceID  string         `json:"source_id"` // 为空时自动生成
	ClassType string         `json:"class_type"`
	Timestamp float64        `json:"timestamp"` // Unix 秒
	Data      map[string]any `json:"data"`
}

// AddEventsInput 批量写入
type AddEventsInput struct {
	Events []AddEventInput `json:"events"`
}

type AddEventsOutput struct {
	Count int `json:"count"`
}

// FindHourlyInput 分页查询 [After, Before) 内的事件，结果按小时分桶
type FindHourlyInput struct {
	web.PagerFilter
	After   float64 `form:"after"`
	Before  float64 `form:"before"`
	Cameras string  `form:"cameras"` // 逗号分隔，为空表示全部通道
}

type FindHourlyOutput struct {
	Items timeline.HourlyPage `json:"items"`
	Total int64               `json:"total"`
}

// CardsInput 查询回看卡片
type CardsInput struct {
	After       float64 `form:"after"`
	Before      float64 `form:"before"`
	Cameras     string  `form:"cameras"`
	DetailLevel string  `form:"detail_level"` // normal/extra/full，为空使用配置
}

// splitCameras 解析逗号分隔的通道列表
func splitCameras(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
