package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/review/internal/core/event"
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/web"
)

// EventAPI 生命周期事件回调与回看卡片
type EventAPI struct {
	log       *slog.Logger
	eventCore event.Core
}

func NewEventAPI(core event.Core) EventAPI {
	return EventAPI{
		log:       slog.With("hook", "lifecycle"),
		eventCore: core,
	}
}

func RegisterEvent(g gin.IRouter, api EventAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/events", handler...)
		group.POST("", web.WrapH(api.onEvents))
		group.GET("/hourly", web.WrapH(api.findHourly))
	}
	{
		group := g.Group("/reviews", handler...)
		group.GET("/cards", web.WrapH(api.getCards))
	}
}

// onEvents 接收分析服务推送的生命周期事件
func (a EventAPI) onEvents(c *gin.Context, in *event.AddEventsInput) (event.AddEventsOutput, error) {
	ctx := c.Request.Context()
	n, err := a.eventCore.AddEvents(ctx, in.Events)
	if err != nil {
		a.log.ErrorContext(ctx, "add lifecycle events", "count", len(in.Events), "err", err)
		return event.AddEventsOutput{}, err
	}
	a.log.DebugContext(ctx, "lifecycle events", "count", n)
	return event.AddEventsOutput{Count: n}, nil
}

// findHourly 分页查询事件，按整点分桶
func (a EventAPI) findHourly(c *gin.Context, in *event.FindHourlyInput) (event.FindHourlyOutput, error) {
	items, total, err := a.eventCore.FindHourly(c.Request.Context(), in)
	return event.FindHourlyOutput{Items: items, Total: total}, err
}

// getCards 日 -> 小时 -> 卡片
func (a EventAPI) getCards(c *gin.Context, in *event.CardsInput) (timeline.CardsData, error) {
	return a.eventCore.Cards(c.Request.Context(), in)
}
