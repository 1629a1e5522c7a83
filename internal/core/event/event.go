package event

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// maxCardPages 单次卡片查询最多拉取的页数
const maxCardPages = 200

// EventStorer Instantiation interface
type EventStorer interface {
	Find(context.Context, *[]*Event, orm.Pager, ...orm.QueryOption) (int64, error)
	BatchAdd(context.Context, []*Event) error

	Session(context.Context, ...func(*gorm.DB) error) error
}

// AddEvents 批量写入生命周期事件，缺少 source_id 的事件自动生成
func (c Core) AddEvents(ctx context.Context, in []AddEventInput) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}

	now := orm.Time{Time: c.engine.Now()}
	events := make([]*Event, 0, len(in))
	for i, e := range in {
		if e.Camera == "" || e.ClassType == "" {
			return 0, reason.ErrBadRequest.Withf("events[%d] camera and class_type are required", i)
		}
		if e.Timestamp <= 0 {
			return 0, reason.ErrBadRequest.Withf("events[%d] invalid timestamp[%v]", i, e.Timestamp)
		}

		out := Event{
			CID:       e.Camera,
			SourceID:  e.SourceID,
			ClassType: e.ClassType,
			Timestamp: e.Timestamp,
			CreatedAt: now,
		}
		if out.SourceID == "" {
			out.SourceID = uuid.NewString()
		}
		if len(e.Data) > 0 {
			b, err := json.Marshal(e.Data)
			if err != nil {
				return 0, reason.ErrBadRequest.Withf("events[%d] data err[%s]", i, err.Error())
			}
			out.Data = string(b)
		}
		events = append(events, &out)
	}

	if err := c.store.Event().BatchAdd(ctx, events); err != nil {
		return 0, reason.ErrDB.Withf(`BatchAdd err[%s]`, err.Error())
	}
	return len(events), nil
}

// FindHourly 分页查询事件并按整点分桶
// 分页边界与小时边界无关，同一小时可能分布在相邻的多页中
func (c Core) FindHourly(ctx context.Context, in *FindHourlyInput) (timeline.HourlyPage, int64, error) {
	if in.Before <= in.After {
		return nil, 0, reason.ErrBadRequest.Withf("before must be greater than after, got [%v, %v]", in.After, in.Before)
	}
	return c.findPage(ctx, in.After, in.Before, splitCameras(in.Cameras), in)
}

func (c Core) findPage(ctx context.Context, after, before float64, cameras []string, pager orm.Pager) (timeline.HourlyPage, int64, error) {
	query := orm.NewQuery(3).OrderBy("ts ASC, id ASC")
	query.Where("ts >= ? AND ts < ?", after, before)
	if len(cameras) > 0 {
		query.Where("cid IN ?", cameras)
	}

	events := make([]*Event, 0, pager.Limit())
	total, err := c.store.Event().Find(ctx, &events, pager, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find err[%s]`, err.Error())
	}

	page := make(timeline.HourlyPage)
	for _, e := range events {
		hour := c.engine.HourStart(e.Timestamp)
		page[hour] = append(page[hour], e.Lifecycle())
	}
	return page, total, nil
}

// Cards 拉取窗口内的全部分页后聚合为回看卡片
// 每次都从完整的分页集合重新计算
func (c Core) Cards(ctx context.Context, in *CardsInput) (timeline.CardsData, error) {
	if in.Before <= in.After {
		return nil, reason.ErrBadRequest.Withf("before must be greater than after, got [%v, %v]", in.After, in.Before)
	}
	level := c.level
	if in.DetailLevel != "" {
		l, err := timeline.ParseDetailLevel(in.DetailLevel)
		if err != nil {
			return nil, reason.ErrBadRequest.Withf("%s", err.Error())
		}
		level = l
	}

	cameras := splitCameras(in.Cameras)
	pages := make([]timeline.HourlyPage, 0, 4)
	var fetched int64
	for i := 1; i <= maxCardPages; i++ {
		page, total, err := c.findPage(ctx, in.After, in.Before, cameras, web.PagerFilter{Page: i, Size: c.pageSize})
		if err != nil {
			return nil, err
		}
		n := page.Len()
		if n == 0 {
			break
		}
		pages = append(pages, page)
		fetched += int64(n)
		if fetched >= total {
			break
		}
		if i == maxCardPages {
			slog.WarnContext(ctx, "review cards truncated", "fetched", fetched, "total", total)
		}
	}
	return c.engine.BuildCards(pages, level), nil
}
