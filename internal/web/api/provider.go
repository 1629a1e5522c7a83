package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/gowvp/review/internal/conf"
	"github.com/gowvp/review/internal/core/event"
	"github.com/gowvp/review/internal/core/event/store/eventdb"
	"github.com/gowvp/review/internal/core/recording"
	"github.com/gowvp/review/internal/core/recording/store/recordingdb"
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewTimeline,
	NewRecordingStore, NewRecordingCore, NewRecordingAPI,
	NewEventStore, NewEventCore, NewEventAPI,
	NewWebHookAPI,
)

type Usecase struct {
	Conf         *conf.Bootstrap
	DB           *gorm.DB
	RecordingAPI RecordingAPI
	EventAPI     EventAPI
	WebHookAPI   WebHookAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	if !uc.Conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	setupRouter(g, uc)
	return g
}

// NewTimeline 按配置的时区与分组窗口创建时间轴引擎
func NewTimeline(cfg *conf.Bootstrap) (timeline.Core, error) {
	loc, err := cfg.Server.Review.Location()
	if err != nil {
		return timeline.Core{}, err
	}
	return timeline.NewCore(
		timeline.WithLocation(loc),
		timeline.WithGroupSeconds(cfg.Server.Review.GroupSeconds),
	), nil
}

// NewRecordingStore 创建录像存储层
func NewRecordingStore(db *gorm.DB) recording.Storer {
	return recordingdb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// NewRecordingCore 创建录像核心服务并启动清理协程，cleanup 时停止
func NewRecordingCore(store recording.Storer, cfg *conf.Bootstrap, engine timeline.Core) (recording.Core, func()) {
	core := recording.NewCore(store,
		recording.WithConfig(&cfg.Server.Recording),
		recording.WithTimeline(engine),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go core.StartCleanupWorker(ctx)
	return core, cancel
}

// NewEventStore 创建事件存储层
func NewEventStore(db *gorm.DB) event.Storer {
	return eventdb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// NewEventCore 创建事件核心服务并启动过期清理，cleanup 时停止
func NewEventCore(store event.Storer, cfg *conf.Bootstrap, engine timeline.Core) (event.Core, func(), error) {
	review := cfg.Server.Review
	level, err := timeline.ParseDetailLevel(review.DetailLevel)
	if err != nil {
		return event.Core{}, nil, err
	}
	core := event.NewCore(store,
		event.WithTimeline(engine),
		event.WithPageSize(review.PageSize),
		event.WithDetailLevel(level),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go core.StartCleanupWorker(ctx, review.EventRetainDays)
	return core, cancel, nil
}
