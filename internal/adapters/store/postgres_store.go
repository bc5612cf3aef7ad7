package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

const DefaultTable = "resources"

// PostgresStore persists samples as rows of the resources table. It is
// both the durable Store read by the records API and a Sink of the
// ingest pipeline.
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresStore{db: db, tableName: table}
}

func (p *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the table when it does not exist yet.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+p.tableName+` (
	id SERIAL PRIMARY KEY,
	time_stamp TIMESTAMPTZ NOT NULL,
	cpu_percent DOUBLE PRECISION NOT NULL,
	memory JSONB NOT NULL,
	disk JSONB NOT NULL,
	net_io JSONB NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("ensure schema %s: %w", p.tableName, err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s *domain.Sample) (int64, error) {
	memory, disk, netIO, err := encodeMaps(s)
	if err != nil {
		return 0, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO "+p.tableName+" (time_stamp, cpu_percent, memory, disk, net_io) VALUES ($1,$2,$3,$4,$5) RETURNING id",
		s.Timestamp, s.CPUPercent, memory, disk, netIO,
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert %s: %w", p.tableName, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Write satisfies ports.Sink.
func (p *PostgresStore) Write(ctx context.Context, s *domain.Sample) error {
	_, err := p.Save(ctx, s)
	return err
}

func (p *PostgresStore) QueryAll(ctx context.Context) ([]*domain.Sample, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT id, time_stamp, cpu_percent, memory, disk, net_io FROM "+p.tableName+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.tableName, err)
	}
	defer rows.Close()

	out := make([]*domain.Sample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", p.tableName, err)
	}
	return out, nil
}

func (p *PostgresStore) QueryByID(ctx context.Context, id int64) (*domain.Sample, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT id, time_stamp, cpu_percent, memory, disk, net_io FROM "+p.tableName+" WHERE id = $1", id)
	s, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	return s, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(r scanner) (*domain.Sample, error) {
	var (
		s                   domain.Sample
		memory, disk, netIO []byte
	)
	if err := r.Scan(&s.ID, &s.Timestamp, &s.CPUPercent, &memory, &disk, &netIO); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	// TIMESTAMPTZ comes back in the session zone
	s.Timestamp = s.Timestamp.UTC()
	if err := json.Unmarshal(memory, &s.Memory); err != nil {
		return nil, fmt.Errorf("decode memory: %w", err)
	}
	if err := json.Unmarshal(disk, &s.Disk); err != nil {
		return nil, fmt.Errorf("decode disk: %w", err)
	}
	if err := json.Unmarshal(netIO, &s.NetIO); err != nil {
		return nil, fmt.Errorf("decode net_io: %w", err)
	}
	return &s, nil
}

// encodeMaps returns JSON text; lib/pq would send []byte as bytea.
func encodeMaps(s *domain.Sample) (string, string, string, error) {
	enc := func(name string, m map[string]float64) (string, error) {
		raw, err := json.Marshal(m)
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", name, err)
		}
		return string(raw), nil
	}
	memory, err := enc("memory", s.Memory)
	if err != nil {
		return "", "", "", err
	}
	disk, err := enc("disk", s.Disk)
	if err != nil {
		return "", "", "", err
	}
	netIO, err := enc("net_io", s.NetIO)
	if err != nil {
		return "", "", "", err
	}
	return memory, disk, netIO, nil
}

var (
	_ ports.Store = (*PostgresStore)(nil)
	_ ports.Sink  = (*PostgresStore)(nil)
)
