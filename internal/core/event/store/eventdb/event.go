package eventdb

import (
	"context"

	"github.com/gowvp/review/internal/core/event"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

// batchSize 单条 INSERT 的最大行数
const batchSize = 200

var _ event.EventStorer = Event{}

// Event Related business namespaces
type Event DB

// NewEvent instance object
func NewEvent(db *gorm.DB) Event {
	return Event{db: db}
}

// Find implements event.EventStorer.
func (d Event) Find(ctx context.Context, bs *[]*event.Event, page orm.Pager, opts ...orm.QueryOption) (int64, error) {
	return orm.FindWithContext(ctx, d.db, bs, page, opts...)
}

// BatchAdd implements event.EventStorer.
func (d Event) BatchAdd(ctx context.Context, models []*event.Event) error {
	return d.db.WithContext(ctx).CreateInBatches(models, batchSize).Error
}

// Session implements event.EventStorer.
func (d Event) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range changeFns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
