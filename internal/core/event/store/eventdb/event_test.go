package eventdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gowvp/review/internal/core/event"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func generateMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	return gdb, mock, err
}

func TestEventFind(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	store := NewEvent(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "lifecycle_events" WHERE (.+)ts >= \$1 AND ts < \$2(.+)cid IN \(\$3,\$4\)`).
		WithArgs(100.0, 200.0, "a", "b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "lifecycle_events" WHERE (.+) ORDER BY ts ASC, id ASC LIMIT \$5 OFFSET \$6`).
		WithArgs(100.0, 200.0, "a", "b", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cid", "ts", "class_type"}).AddRow(3, "a", 150.5, "visible"))

	query := orm.NewQuery(3).OrderBy("ts ASC, id ASC").
		Where("ts >= ? AND ts < ?", 100.0, 200.0).
		Where("cid IN ?", []string{"a", "b"})

	var items []*event.Event
	total, err := store.Find(context.Background(), &items, web.PagerFilter{Page: 2, Size: 2}, query.Encode()...)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 1 {
		t.Fatalf("total[%d] len[%d]", total, len(items))
	}
	if items[0].Timestamp != 150.5 || items[0].ClassType != "visible" {
		t.Fatalf("unexpected event %+v", items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestEventBatchAdd(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	store := NewEvent(db)

	mock.ExpectQuery(`INSERT INTO "lifecycle_events" (.+) VALUES (.+),(.+) RETURNING (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	events := []*event.Event{
		{CID: "a", SourceID: "s1", ClassType: "visible", Timestamp: 10},
		{CID: "a", SourceID: "s1", ClassType: "gone", Timestamp: 20},
	}
	if err := store.BatchAdd(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if events[0].ID != 1 || events[1].ID != 2 {
		t.Fatalf("ids not filled: %d %d", events[0].ID, events[1].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestEventSessionRollback(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	store := NewEvent(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "lifecycle_events" WHERE id IN \(\$1\)`).
		WithArgs(int64(1)).
		WillReturnError(gorm.ErrInvalidDB)
	mock.ExpectRollback()

	err = store.Session(context.Background(), func(tx *gorm.DB) error {
		return tx.Where("id IN ?", []int64{1}).Delete(&event.Event{}).Error
	})
	if err == nil {
		t.Fatal("expect error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}
