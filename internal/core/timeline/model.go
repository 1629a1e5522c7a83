package timeline

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeRange 半开区间 [After, Before)，单位为 Unix 秒
type TimeRange struct {
	After  float64 `json:"after"`
	Before float64 `json:"before"`
}

// Segment 单个通道的一段连续录像
// 同一通道的片段按 StartTime 升序且互不重叠，允许存在空洞
type Segment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Duration 片段时长（秒）
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// ClassType 生命周期事件类型
type ClassType string

const (
	ClassVisible     ClassType = "visible"
	ClassActive      ClassType = "active"
	ClassStationary  ClassType = "stationary"
	ClassAttribute   ClassType = "attribute"
	ClassGone        ClassType = "gone"
	ClassEnteredZone ClassType = "entered_zone"
	ClassHeard       ClassType = "heard"
	ClassExternal    ClassType = "external"
)

// LifecycleEvent 被追踪对象的一条生命周期/标注记录
type LifecycleEvent struct {
	Timestamp float64        `json:"timestamp"` // Unix 秒，可带小数
	Camera    string         `json:"camera"`    // 通道 ID
	SourceID  string         `json:"source_id"` // 追踪对象 ID
	ClassType ClassType      `json:"class_type"`
	Data      map[string]any `json:"data,omitempty"`
}

// uniqueKey 卡片内的去重键
func (e LifecycleEvent) uniqueKey() string {
	return e.SourceID + "-" + string(e.ClassType)
}

// HourlyPage 一次分页查询的结果，key 为整点时间戳
type HourlyPage map[int64][]LifecycleEvent

// Len 事件总数
func (p HourlyPage) Len() int {
	var n int
	for _, events := range p {
		n += len(events)
	}
	return n
}

// CardKey 卡片分组键，同一小时内按 (通道, 窗口起点) 唯一
type CardKey struct {
	Camera      string
	WindowStart float64
}

// String 与前端约定的分组键格式 camera-windowStart
func (k CardKey) String() string {
	return k.Camera + "-" + strconv.FormatFloat(k.WindowStart, 'f', -1, 64)
}

// MarshalText 使 CardKey 可以直接作为 JSON map 的 key
func (k CardKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 从最后一个 '-' 处切分，通道名本身允许包含 '-'
func (k *CardKey) UnmarshalText(b []byte) error {
	s := string(b)
	i := strings.LastIndexByte(s, '-')
	if i <= 0 {
		return fmt.Errorf("invalid card key %q", s)
	}
	start, err := strconv.ParseFloat(s[i+1:], 64)
	if err != nil {
		return fmt.Errorf("invalid card key %q: %w", s, err)
	}
	k.Camera = s[:i]
	k.WindowStart = start
	return nil
}

// Card 同一通道在一个分组窗口内的事件聚合
type Card struct {
	Camera     string           `json:"camera"`
	Time       float64          `json:"time"`
	Entries    []LifecycleEvent `json:"entries"`
	UniqueKeys []string         `json:"uniqueKeys"`
}

type (
	// HourCards 小时内的卡片
	HourCards map[CardKey]*Card
	// DayCards 一天内按整点时间戳分组
	DayCards map[int64]HourCards
	// CardsData 按本地零点时间戳分组
	CardsData map[int64]DayCards
)

// Len 卡片总数
func (d CardsData) Len() int {
	var n int
	for _, day := range d {
		for _, hour := range day {
			n += len(hour)
		}
	}
	return n
}

// DetailLevel 控制聚合时过滤哪些低信息量事件
type DetailLevel string

const (
	DetailNormal DetailLevel = "normal"
	DetailExtra  DetailLevel = "extra"
	DetailFull   DetailLevel = "full"
)

// ParseDetailLevel 空字符串视为 normal
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch l := DetailLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return DetailNormal, nil
	case DetailNormal, DetailExtra, DetailFull:
		return l, nil
	default:
		return "", fmt.Errorf("unknown detail level %q", s)
	}
}

var (
	normalSuppressed = map[ClassType]struct{}{
		ClassActive: {}, ClassAttribute: {}, ClassGone: {}, ClassStationary: {}, ClassVisible: {},
	}
	// extra 的过滤集合必须是 normal 的子集，保证 normal ⊆ extra ⊆ full
	extraSuppressed = map[ClassType]struct{}{
		ClassAttribute: {}, ClassGone: {}, ClassVisible: {},
	}
)

// Suppresses 该级别下是否过滤此类型
func (l DetailLevel) Suppresses(t ClassType) bool {
	var set map[ClassType]struct{}
	switch l {
	case DetailFull:
		return false
	case DetailExtra:
		set = extraSuppressed
	default:
		set = normalSuppressed
	}
	_, ok := set[t]
	return ok
}

// suppressionDepth 被多少个级别过滤，用于在全部被过滤的窗口中挑选代表事件
func suppressionDepth(t ClassType) int {
	var n int
	if _, ok := normalSuppressed[t]; ok {
		n++
	}
	if _, ok := extraSuppressed[t]; ok {
		n++
	}
	return n
}
