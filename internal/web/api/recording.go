package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/review/internal/conf"
	"github.com/gowvp/review/internal/core/recording"
	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// RecordingAPI 为 http 提供业务方法
type RecordingAPI struct {
	recordingCore recording.Core
	conf          *conf.Bootstrap
}

func NewRecordingAPI(core recording.Core, conf *conf.Bootstrap) RecordingAPI {
	return RecordingAPI{recordingCore: core, conf: conf}
}

func RegisterRecording(g gin.IRouter, api RecordingAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/recordings", handler...)
		group.GET("", web.WrapH(api.findRecordings))
		group.POST("", web.WrapH(api.addRecording))
		group.GET("/segments", web.WrapH(api.getSegments))
		group.GET("/seek", web.WrapH(api.seek))
		group.GET("/chunks/day", web.WrapH(api.chunkDay))
		group.GET("/chunks/range", web.WrapH(api.chunkRange))
		group.GET("/monthly", web.WrapH(api.getMonthlyStats))
		// HLS 播放列表（根据通道 ID 和时间范围生成 m3u8）
		group.GET("/channels/:cid/index.m3u8", api.channelPlaylist)
		group.GET("/:id", web.WrapH(api.getRecording))
		group.DELETE("/:id", web.WrapH(api.delRecording))
		group.GET("/:id/download", api.downloadRecording)
	}

	// Gin Static 支持 HTTP Range 请求，实现边下载边播放
	if api.conf != nil && api.conf.Server.Recording.StorageDir != "" {
		slog.Info("注册录像静态文件服务", "path", recording.StaticPrefix, "dir", api.conf.Server.Recording.StorageDir)
		g.Static(recording.StaticPrefix, api.conf.Server.Recording.StorageDir)
	}
}

// findRecordings 分页查询录像列表
func (a RecordingAPI) findRecordings(c *gin.Context, in *recording.FindRecordingInput) (any, error) {
	items, total, err := a.recordingCore.FindRecordings(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}

// addRecording 流媒体切片完成后登记
func (a RecordingAPI) addRecording(c *gin.Context, in *recording.AddRecordingInput) (*recording.Recording, error) {
	return a.recordingCore.AddRecording(c.Request.Context(), in)
}

// getSegments 时间轴上的录像片段
func (a RecordingAPI) getSegments(c *gin.Context, in *recording.SegmentsInput) (any, error) {
	items, err := a.recordingCore.GetSegments(c.Request.Context(), in)
	return gin.H{"items": items}, err
}

func (a RecordingAPI) seek(c *gin.Context, in *recording.SeekInput) (*recording.SeekOutput, error) {
	return a.recordingCore.Seek(c.Request.Context(), in)
}

func (a RecordingAPI) chunkDay(_ *gin.Context, in *recording.ChunkDayInput) (*recording.ChunkDayOutput, error) {
	return a.recordingCore.ChunkDay(in)
}

func (a RecordingAPI) chunkRange(_ *gin.Context, in *recording.ChunkRangeInput) (*timeline.ChunkedRange, error) {
	return a.recordingCore.ChunkRange(in)
}

func (a RecordingAPI) getRecording(c *gin.Context, _ *struct{}) (*recording.Recording, error) {
	recordingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, reason.ErrBadRequest.Withf("invalid recording id[%s]", c.Param("id"))
	}
	return a.recordingCore.GetRecording(c.Request.Context(), recordingID)
}

func (a RecordingAPI) delRecording(c *gin.Context, _ *struct{}) (*recording.Recording, error) {
	recordingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, reason.ErrBadRequest.Withf("invalid recording id[%s]", c.Param("id"))
	}
	return a.recordingCore.DelRecording(c.Request.Context(), recordingID)
}

// getMonthlyStats 获取月度录像统计
func (a RecordingAPI) getMonthlyStats(c *gin.Context, in *recording.MonthlyStatsInput) (*recording.MonthlyStatsOutput, error) {
	return a.recordingCore.GetMonthlyStats(c.Request.Context(), in)
}

// downloadRecording 下载录像文件
func (a RecordingAPI) downloadRecording(c *gin.Context) {
	recordingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		web.Fail(c, reason.ErrBadRequest.Withf("invalid recording id[%s]", c.Param("id")))
		return
	}

	rec, err := a.recordingCore.GetRecording(c.Request.Context(), recordingID)
	if err != nil {
		web.Fail(c, err)
		return
	}

	filePath := a.recordingCore.GetFullPath(rec.Path)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		web.Fail(c, reason.ErrNotFound.Withf("recording file not found"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(filePath)))
	c.File(filePath)
}

// channelPlaylist 生成 HLS m3u8 播放列表
// 路径: /recordings/channels/:cid/index.m3u8?after=xxx&before=xxx&token=xxx
func (a RecordingAPI) channelPlaylist(c *gin.Context) {
	after, err1 := strconv.ParseFloat(c.Query("after"), 64)
	before, err2 := strconv.ParseFloat(c.Query("before"), 64)
	if err1 != nil || err2 != nil {
		web.Fail(c, reason.ErrBadRequest.Withf("after and before are required"))
		return
	}

	text, err := a.recordingCore.Playlist(c.Request.Context(), c.Param("cid"), after, before, c.Query("token"))
	if err != nil {
		web.Fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(text))
}
