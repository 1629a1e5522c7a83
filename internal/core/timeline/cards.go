package timeline

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// MergePages 合并多次分页查询的结果
// 分页边界与小时边界不对齐，同一小时可能出现在多页中，合并后按时间升序排列
// 时间相同的事件再按通道、对象、类型、附加数据排序，保证结果与分页顺序无关
func MergePages(pages []HourlyPage) HourlyPage {
	out := make(HourlyPage)
	for _, page := range pages {
		for hour, events := range page {
			out[hour] = append(out[hour], events...)
		}
	}
	for _, events := range out {
		slices.SortStableFunc(events, compareEvents)
	}
	return out
}

func compareEvents(a, b LifecycleEvent) int {
	if n := cmp.Or(
		cmp.Compare(a.Timestamp, b.Timestamp),
		strings.Compare(a.Camera, b.Camera),
		strings.Compare(a.SourceID, b.SourceID),
		strings.Compare(string(a.ClassType), string(b.ClassType)),
	); n != 0 {
		return n
	}
	return strings.Compare(dataKey(a.Data), dataKey(b.Data))
}

// dataKey 附加数据的稳定编码，map 的 key 按字典序输出
func dataKey(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprint(data)
	}
	return string(b)
}

// BuildCards 将生命周期事件聚合为 日 -> 小时 -> 卡片 三级结构
// 每次调用都基于传入的全部分页重新计算，不保留任何状态
func (c Core) BuildCards(pages []HourlyPage, level DetailLevel) CardsData {
	out := make(CardsData)
	for hour, events := range MergePages(pages) {
		if len(events) == 0 {
			continue
		}
		cards := make(HourCards)
		for _, cl := range c.clusters(events) {
			if card := cl.card(level); card != nil {
				cards[cl.key] = card
			}
		}
		if len(cards) == 0 {
			continue
		}

		day := c.DayStart(events[0].Timestamp)
		if _, ok := out[day]; !ok {
			out[day] = make(DayCards)
		}
		out[day][hour] = cards
	}
	return out
}

// cluster 一个通道在一个分组窗口内的全部事件
type cluster struct {
	key     CardKey
	events  []LifecycleEvent
	sources map[string]*sourceGroup
}

// sourceGroup 窗口内同一追踪对象的事件
type sourceGroup struct {
	index []int       // 在 cluster.events 中的下标
	types []ClassType // 按首次出现顺序
}

func (cl *cluster) add(e LifecycleEvent) {
	g, ok := cl.sources[e.SourceID]
	if !ok {
		g = &sourceGroup{}
		cl.sources[e.SourceID] = g
	}
	g.index = append(g.index, len(cl.events))
	if !slices.Contains(g.types, e.ClassType) {
		g.types = append(g.types, e.ClassType)
	}
	cl.events = append(cl.events, e)
}

// clusters 一次遍历完成窗口划分与按对象的类型统计
// 窗口按通道独立滚动：事件距当前窗口起点超过 groupSeconds 时，以该事件时间开启新窗口
// events 必须已按时间升序
func (c Core) clusters(events []LifecycleEvent) []*cluster {
	windows := make(map[string]float64)
	index := make(map[CardKey]*cluster)
	out := make([]*cluster, 0, 4)

	for _, e := range events {
		start, ok := windows[e.Camera]
		if !ok || e.Timestamp-start > c.groupSeconds {
			start = e.Timestamp
			windows[e.Camera] = start
		}

		key := CardKey{Camera: e.Camera, WindowStart: start}
		cl, ok := index[key]
		if !ok {
			cl = &cluster{key: key, sources: make(map[string]*sourceGroup)}
			index[key] = cl
			out = append(out, cl)
		}
		cl.add(e)
	}
	return out
}

// allSuppressed 对象在窗口内的所有类型都会被过滤
func (g *sourceGroup) allSuppressed(level DetailLevel) bool {
	for _, t := range g.types {
		if !level.Suppresses(t) {
			return false
		}
	}
	return len(g.types) > 0
}

// representative 全部被过滤时保留的那一条：被过滤级别最少的类型中最早的事件
// 这样 normal 保留的代表在 extra 下同样会被保留
func (g *sourceGroup) representative(events []LifecycleEvent) int {
	idx, depth := -1, 0
	for _, i := range g.index {
		if d := suppressionDepth(events[i].ClassType); idx < 0 || d < depth {
			idx, depth = i, d
		}
	}
	return idx
}

// card 按详细级别过滤并去重，没有可保留的事件时返回 nil
// 每个只产生低信息量事件的对象都保留一条代表事件
func (cl *cluster) card(level DetailLevel) *Card {
	keep := make(map[int]struct{}, len(cl.sources))
	for _, g := range cl.sources {
		if g.allSuppressed(level) {
			keep[g.representative(cl.events)] = struct{}{}
		}
	}

	var card *Card
	seen := make(map[string]struct{}, len(cl.events))
	for i, e := range cl.events {
		if _, ok := keep[i]; !ok && level.Suppresses(e.ClassType) {
			continue
		}
		key := e.uniqueKey()
		if level != DetailFull {
			if _, ok := seen[key]; ok {
				continue
			}
		}
		seen[key] = struct{}{}

		if card == nil {
			card = &Card{Camera: e.Camera, Time: e.Timestamp}
		}
		card.Entries = append(card.Entries, e)
		card.UniqueKeys = append(card.UniqueKeys, key)
	}
	return card
}
