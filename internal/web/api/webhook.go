package api

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/review/internal/conf"
	"github.com/gowvp/review/internal/core/recording"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

// DefaultOutput 流媒体服务回调的固定响应，code 非 0 时流媒体会重试
type DefaultOutput struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func newDefaultOutputOK() DefaultOutput {
	return DefaultOutput{Code: 0, Msg: "success"}
}

// onRecordMP4Input https://docs.zlmediakit.com/zh/guide/media_server/web_hook_api.html#_8%E3%80%81on-record-mp4
type onRecordMP4Input struct {
	MediaServerID string  `json:"mediaServerId"`
	App           string  `json:"app"`
	Stream        string  `json:"stream"`
	Vhost         string  `json:"vhost"`
	FileName      string  `json:"file_name"`
	FilePath      string  `json:"file_path"`
	FileSize      int64   `json:"file_size"`
	Folder        string  `json:"folder"`
	StartTime     int64   `json:"start_time"` // unix 秒
	TimeLen       float64 `json:"time_len"`   // 秒
	URL           string  `json:"url"`
}

type WebHookAPI struct {
	recordingCore recording.Core
	conf          *conf.Bootstrap
	log           *slog.Logger
}

func NewWebHookAPI(core recording.Core, conf *conf.Bootstrap) WebHookAPI {
	return WebHookAPI{
		recordingCore: core,
		conf:          conf,
		log:           slog.With("hook", "zlm"),
	}
}

func RegisterWebHook(r gin.IRouter, api WebHookAPI, handler ...gin.HandlerFunc) {
	group := r.Group("/webhook", handler...)
	group.POST("/on_record_mp4", web.WrapH(api.onRecordMP4))
}

// onRecordMP4 MP4 切片完成后登记录像
// 入库失败也返回成功，避免流媒体反复重试同一个切片
func (w WebHookAPI) onRecordMP4(c *gin.Context, in *onRecordMP4Input) (DefaultOutput, error) {
	ctx := c.Request.Context()
	w.log.InfoContext(ctx, "webhook onRecordMP4",
		"app", in.App,
		"stream", in.Stream,
		"file_path", in.FilePath,
		"file_size", in.FileSize,
		"time_len", in.TimeLen,
		"start_time", in.StartTime,
	)

	startedAt := time.Unix(in.StartTime, 0)
	endedAt := startedAt.Add(time.Duration(in.TimeLen * float64(time.Second)))
	_, err := w.recordingCore.AddRecording(ctx, &recording.AddRecordingInput{
		CID:       in.Stream,
		App:       in.App,
		Stream:    in.Stream,
		StartedAt: orm.Time{Time: startedAt},
		EndedAt:   orm.Time{Time: endedAt},
		Duration:  in.TimeLen,
		Path:      w.relativePath(in),
		Size:      in.FileSize,
	})
	if err != nil {
		w.log.ErrorContext(ctx, "录像入库失败", "stream", in.Stream, "err", err)
	}
	return newDefaultOutputOK(), nil
}

// relativePath 相对于录像根目录的路径，不在根目录下时退回 url 字段
func (w WebHookAPI) relativePath(in *onRecordMP4Input) string {
	dir := w.conf.Server.Recording.StorageDir
	if dir == "" {
		return filepath.Clean(in.FilePath)
	}
	absDir, err1 := filepath.Abs(dir)
	absFile, err2 := filepath.Abs(in.FilePath)
	if err1 == nil && err2 == nil {
		if rel, err := filepath.Rel(absDir, absFile); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(in.URL)), "/")
}
