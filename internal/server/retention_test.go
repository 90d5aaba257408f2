package server

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/store"
)

func TestNewRetentionSweeperRejectsBadCron(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	_, err = NewRetentionSweeper(store.NewWithDB(db), nil, config.RetentionConfig{Cron: "not a cron", MaxAge: time.Hour})
	if err == nil {
		t.Fatal("expected error for unparseable cron expression")
	}
}

func TestSweepDropsPurgedRecordsFromIndex(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	st := store.NewWithDB(db)

	idx, err := store.NewIndex()
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()
	if err := idx.Add(store.Record{ID: "old1", UserID: "alice", Kind: "analysis", Input: "glacier melt rates"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(store.Record{ID: "new1", UserID: "alice", Kind: "analysis", Input: "glacier photography"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM records WHERE created_at < $1 RETURNING id`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("old1"))

	sweeper, err := NewRetentionSweeper(st, idx, config.RetentionConfig{Cron: "0 3 * * *", MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewRetentionSweeper: %v", err)
	}
	sweeper.sweep()

	ids, err := idx.Search("alice", "glacier", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != "new1" {
		t.Errorf("ids = %v, want only the surviving record", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
