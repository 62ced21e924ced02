package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/repowatch/repowatch/internal/types"
)

const createScansTable = `
create table if not exists repowatch_scans (
    id              text primary key,
    repo            text not null,
    source          text not null,
    locator         text not null default '',
    commit_sha      text not null default '',
    branch          text not null default '',
    files_scanned   integer not null default 0,
    findings        jsonb not null,
    severity_counts jsonb not null,
    created_at      timestamptz not null
);
create index if not exists repowatch_scans_created_at on repowatch_scans (created_at desc);
`

const selectScanColumns = `id, repo, source, locator, commit_sha, branch, files_scanned, findings, severity_counts, created_at`

// PostgresStore keeps records in a single table with findings as jsonb.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects, pings and ensures the table exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store needs a DSN")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createScansTable); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	findings, err := json.Marshal(rec.Findings)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal findings: %w", err)
	}
	counts, err := json.Marshal(rec.SeverityCounts)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal severity counts: %w", err)
	}
	const q = `
insert into repowatch_scans (id, repo, source, locator, commit_sha, branch, files_scanned, findings, severity_counts, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10)
on conflict (id) do update set
    repo = excluded.repo, source = excluded.source, locator = excluded.locator,
    commit_sha = excluded.commit_sha, branch = excluded.branch,
    files_scanned = excluded.files_scanned, findings = excluded.findings,
    severity_counts = excluded.severity_counts, created_at = excluded.created_at;
`
	_, err = s.pool.Exec(ctx, q, rec.ID, rec.Repo, string(rec.Source), rec.Locator, rec.Commit,
		rec.Branch, rec.FilesScanned, string(findings), string(counts), rec.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("failed to save record: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec      Record
		source   string
		findings []byte
		counts   []byte
	)
	err := row.Scan(&rec.ID, &rec.Repo, &source, &rec.Locator, &rec.Commit, &rec.Branch,
		&rec.FilesScanned, &findings, &counts, &rec.Timestamp)
	if err != nil {
		return Record{}, err
	}
	rec.Source = types.SourceKind(source)
	if err := json.Unmarshal(findings, &rec.Findings); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal findings: %w", err)
	}
	if err := json.Unmarshal(counts, &rec.SeverityCounts); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal severity counts: %w", err)
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	q := `select ` + selectScanColumns + ` from repowatch_scans where id = $1`
	rec, err := scanRecord(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	q := `select ` + selectScanColumns + ` from repowatch_scans order by created_at desc`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `delete from repowatch_scans where id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Totals(ctx context.Context) (Totals, error) {
	t := emptyTotals()
	err := s.pool.QueryRow(ctx,
		`select count(*), coalesce(sum(jsonb_array_length(findings)), 0) from repowatch_scans`).
		Scan(&t.Scans, &t.Findings)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to read totals: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
select c.key, sum(c.value::int)
from repowatch_scans, jsonb_each_text(severity_counts) as c(key, value)
group by c.key`)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to read severity totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sev string
			n   int64
		)
		if err := rows.Scan(&sev, &n); err != nil {
			return Totals{}, err
		}
		t.BySeverity[types.Severity(sev)] = int(n)
	}
	return t, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
