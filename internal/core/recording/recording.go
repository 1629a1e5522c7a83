package recording

import (
	"context"
	"log/slog"
	"time"

	"github.com/gowvp/review/internal/core/timeline"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// segmentsLimit 单次时间轴查询的片段上限，一天 10s 切片约 8640 条
const segmentsLimit = 10000

// RecordingStorer Instantiation interface
type RecordingStorer interface {
	Find(context.Context, *[]*Recording, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Recording, ...orm.QueryOption) error
	Add(context.Context, *Recording) error
	Del(context.Context, *Recording, ...orm.QueryOption) error

	Session(context.Context, ...func(*gorm.DB) error) error
}

// FindRecordings 分页查询录像列表，支持通道ID和时间范围筛选
func (c Core) FindRecordings(ctx context.Context, in *FindRecordingInput) ([]*Recording, int64, error) {
	query := orm.NewQuery(4).OrderBy("started_at DESC")

	if in.CID != "" {
		query.Where("cid = ?", in.CID)
	}
	if in.App != "" {
		query.Where("app = ?", in.App)
	}
	if in.Stream != "" {
		query.Where("stream = ?", in.Stream)
	}
	if in.Start > 0 && in.End > 0 {
		query.Where("started_at >= ? AND ended_at <= ?", c.secondsTime(in.Start), c.secondsTime(in.End))
	}

	items := make([]*Recording, 0, in.Limit())
	total, err := c.store.Recording().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// GetRecording Query a single object
func (c Core) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	var out Recording
	if err := c.store.Recording().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Get id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// AddRecording Insert into database
func (c Core) AddRecording(ctx context.Context, in *AddRecordingInput) (*Recording, error) {
	if !in.EndedAt.After(in.StartedAt.Time) {
		return nil, reason.ErrBadRequest.Withf("ended_at must be after started_at")
	}

	var out Recording
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	if out.Duration <= 0 {
		out.Duration = in.EndedAt.Sub(in.StartedAt.Time).Seconds()
	}
	out.StartedAt = c.dbTime(in.StartedAt.Time)
	out.EndedAt = c.dbTime(in.EndedAt.Time)
	out.CreatedAt = c.dbTime(c.engine.Now())

	if err := c.store.Recording().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// DelRecording Delete object
func (c Core) DelRecording(ctx context.Context, id int64) (*Recording, error) {
	var out Recording
	if err := c.store.Recording().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// GetSegments 返回与 [start, end) 有重叠的录像片段，按开始时间升序
func (c Core) GetSegments(ctx context.Context, in *SegmentsInput) ([]timeline.Segment, error) {
	if in.CID == "" {
		return nil, reason.ErrBadRequest.Withf("cid is required")
	}
	if in.Start <= 0 || in.End <= 0 || in.End <= in.Start {
		return nil, reason.ErrBadRequest.Withf("start and end are required, got [%v, %v]", in.Start, in.End)
	}

	recordings, err := c.findOverlapping(ctx, in.CID, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	out := make([]timeline.Segment, 0, len(recordings))
	for _, r := range recordings {
		out = append(out, r.Segment())
	}
	return out, nil
}

func (c Core) findOverlapping(ctx context.Context, cid string, start, end float64) ([]*Recording, error) {
	query := orm.NewQuery(2).OrderBy("started_at ASC")
	query.Where("cid = ?", cid)
	// 查询时间范围内有重叠的录像
	query.Where("started_at < ? AND ended_at > ?", c.secondsTime(end), c.secondsTime(start))

	recordings := make([]*Recording, 0, 64)
	if _, err := c.store.Recording().Find(ctx, &recordings, web.PagerFilter{Size: segmentsLimit}, query.Encode()...); err != nil {
		return nil, reason.ErrDB.Withf(`findOverlapping cid[%s] err[%s]`, cid, err.Error())
	}
	return recordings, nil
}

// GetMonthlyStats 获取月度录像统计
// 返回指定月份每天是否有录像的位图字符串，日期按时间轴时区划分
func (c Core) GetMonthlyStats(ctx context.Context, in *MonthlyStatsInput) (*MonthlyStatsOutput, error) {
	if in.Year <= 0 || in.Month < 1 || in.Month > 12 {
		return nil, reason.ErrBadRequest.Withf("invalid year or month")
	}

	loc := c.engine.Location()
	firstDay := time.Date(in.Year, time.Month(in.Month), 1, 0, 0, 0, 0, loc)
	lastDay := firstDay.AddDate(0, 1, 0).Add(-time.Nanosecond)
	daysInMonth := lastDay.Day()

	query := orm.NewQuery(2)
	query.Where("started_at >= ? AND started_at <= ?", c.dbTime(firstDay), c.dbTime(lastDay))
	if in.CID != "" {
		query.Where("cid = ?", in.CID)
	}

	var recordings []*Recording
	if _, err := c.store.Recording().Find(ctx, &recordings, web.PagerFilter{Size: segmentsLimit}, query.Encode()...); err != nil {
		return nil, reason.ErrDB.Withf(`GetMonthlyStats err[%s]`, err.Error())
	}

	bitmap := make([]byte, daysInMonth)
	for i := range bitmap {
		bitmap[i] = '0'
	}
	for _, r := range recordings {
		day := r.StartedAt.In(loc).Day()
		if day >= 1 && day <= daysInMonth {
			bitmap[day-1] = '1'
		}
	}

	return &MonthlyStatsOutput{
		Year:     in.Year,
		Month:    in.Month,
		Days:     daysInMonth,
		HasVideo: string(bitmap),
	}, nil
}

// dbTime 统一以时间轴时区写入与比较，sqlite 按字符串比较时间
func (c Core) dbTime(t time.Time) orm.Time {
	return orm.Time{Time: t.In(c.engine.Location())}
}

// secondsTime Unix 秒（可带小数）转数据库时间
func (c Core) secondsTime(sec float64) orm.Time {
	return c.dbTime(time.UnixMilli(int64(sec * 1000)))
}
