package recording

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gowvp/review/internal/core/timeline"
	"github.com/grafov/m3u8"
	"github.com/ixugo/goddd/pkg/reason"
)

// StaticPrefix 录像文件静态服务路径
const StaticPrefix = "/static/recordings"

// Seek 将 ts 映射为 [after, before) 播放窗口内的播放位置
func (c Core) Seek(ctx context.Context, in *SeekInput) (*SeekOutput, error) {
	if in.CID == "" {
		return nil, reason.ErrBadRequest.Withf("cid is required")
	}
	if in.Before <= in.After {
		return nil, reason.ErrBadRequest.Withf("before must be greater than after, got [%v, %v]", in.After, in.Before)
	}

	recordings, err := c.findOverlapping(ctx, in.CID, in.After, in.Before)
	if err != nil {
		return nil, err
	}
	segments := make([]timeline.Segment, 0, len(recordings))
	for _, r := range recordings {
		segments = append(segments, r.Segment())
	}

	out := SeekOutput{Segments: len(segments)}
	if len(segments) == 0 {
		return &out, nil
	}
	out.Inpoint = timeline.InpointOffset(in.After, &segments[0])
	out.Position, out.Found = timeline.SeekPosition(in.Timestamp, segments, out.Inpoint)
	return &out, nil
}

// ChunkDay 将一天内的查询窗口按整点切分
func (c Core) ChunkDay(in *ChunkDayInput) (*ChunkDayOutput, error) {
	if in.Before < in.After {
		return nil, reason.ErrBadRequest.Withf("before must not be less than after, got [%v, %v]", in.After, in.Before)
	}
	return &ChunkDayOutput{
		Items: c.engine.ChunkDay(timeline.TimeRange{After: in.After, Before: in.Before}),
	}, nil
}

// ChunkRange 将任意时间段按整点切分
func (c Core) ChunkRange(in *ChunkRangeInput) (*timeline.ChunkedRange, error) {
	if in.End < in.Start {
		return nil, reason.ErrBadRequest.Withf("end must not be less than start, got [%v, %v]", in.Start, in.End)
	}
	out := c.engine.ChunkArbitrary(in.Start, in.End)
	return &out, nil
}

// Playlist 生成 [after, before) 内录像的 VOD m3u8，token 追加到每个片段 URL
func (c Core) Playlist(ctx context.Context, cid string, after, before float64, token string) (string, error) {
	if cid == "" {
		return "", reason.ErrBadRequest.Withf("cid is required")
	}
	if before <= after {
		return "", reason.ErrBadRequest.Withf("before must be greater than after, got [%v, %v]", after, before)
	}

	recordings, err := c.findOverlapping(ctx, cid, after, before)
	if err != nil {
		return "", err
	}
	if len(recordings) == 0 {
		return "", reason.ErrNotFound.Withf("no recordings in [%v, %v)", after, before)
	}
	return BuildPlaylist(recordings, token)
}

// BuildPlaylist 录像需已按开始时间升序
// 每个 fMP4 文件的 DTS 都从 0 开始，片段之间必须插入 EXT-X-DISCONTINUITY
func BuildPlaylist(recordings []*Recording, token string) (string, error) {
	pl, err := m3u8.NewMediaPlaylist(0, uint(len(recordings)))
	if err != nil {
		return "", err
	}
	pl.MediaType = m3u8.VOD

	for i, rec := range recordings {
		if i > 0 {
			if err := pl.SetDiscontinuity(); err != nil {
				return "", err
			}
		}
		if err := pl.Append(segmentURI(rec.Path, token), rec.Duration, ""); err != nil {
			return "", fmt.Errorf("append %s: %w", rec.Path, err)
		}
	}
	pl.Close()
	return pl.String(), nil
}

// segmentURI 使用不带域名的路径，经代理访问时也能正常播放
func segmentURI(path, token string) string {
	uri := StaticPrefix + "/" + strings.TrimPrefix(path, "/")
	if token == "" {
		return uri
	}
	return uri + "?token=" + url.QueryEscape(token)
}
