package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

var columns = []string{"id", "time_stamp", "cpu_percent", "memory", "disk", "net_io"}

func TestPostgresStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "")
	ts := time.Date(2025, 5, 21, 14, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO resources (time_stamp, cpu_percent, memory, disk, net_io) VALUES ($1,$2,$3,$4,$5) RETURNING id")).
		WithArgs(ts, 12.5, `{"total":16000}`, `{"used":10}`, `{"bytes_sent":5}`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	id, err := st.Save(context.Background(), &domain.Sample{
		Timestamp:  ts,
		CPUPercent: 12.5,
		Memory:     map[string]float64{"total": 16000},
		Disk:       map[string]float64{"used": 10},
		NetIO:      map[string]float64{"bytes_sent": 5},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreSaveRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "resources")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resources").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := st.Write(context.Background(), &domain.Sample{Timestamp: time.Now(), CPUPercent: 1}); err == nil {
		t.Fatalf("expected write to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreQueryAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "resources")
	ts := time.Date(2025, 5, 21, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, time_stamp, cpu_percent, memory, disk, net_io FROM resources ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, ts, 10.0, []byte(`{"total":1}`), []byte(`{"total":2}`), []byte(`{"bytes_sent":3}`)).
			AddRow(2, ts.Add(5*time.Second), 20.0, []byte(`{"total":1}`), []byte(`{"total":2}`), []byte(`{"bytes_sent":4}`)))

	got, err := st.QueryAll(context.Background())
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].CPUPercent != 20 || got[1].NetIO["bytes_sent"] != 4 {
		t.Fatalf("unexpected records: %+v %+v", got[0], got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreQueryAllEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id").WillReturnRows(sqlmock.NewRows(columns))

	got, err := NewPostgresStore(db, "").QueryAll(context.Background())
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestPostgresStoreQueryByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	st := NewPostgresStore(db, "")
	ts := time.Date(2025, 5, 21, 14, 0, 0, 0, time.UTC)
	sessionTS := ts.In(time.FixedZone("CEST", 2*60*60))
	query := regexp.QuoteMeta("SELECT id, time_stamp, cpu_percent, memory, disk, net_io FROM resources WHERE id = $1")

	mock.ExpectQuery(query).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(3, sessionTS, 33.0, []byte(`{"total":1}`), []byte(`{"total":2}`), []byte(`{"bytes_sent":3}`)))
	mock.ExpectQuery(query).WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := st.QueryByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("query by id: %v", err)
	}
	if got.ID != 3 || got.CPUPercent != 33 || !got.Timestamp.Equal(ts) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %s", got.Timestamp.Location())
	}

	if _, err := st.QueryByID(context.Background(), 999); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS resources")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewPostgresStore(db, "").EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if name := NewPostgresStore(db, "").Name(); name != "postgres" {
		t.Fatalf("expected sink name postgres, got %s", name)
	}
}
