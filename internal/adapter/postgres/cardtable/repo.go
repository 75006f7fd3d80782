// Package cardtable implements the staging and live card tables in PostgreSQL:
// creation, schema verification, batch inserts into staging and the
// staging/live swap.
package cardtable

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mtgportal-cron/internal/adapter/postgres"
	"github.com/heartmarshall/mtgportal-cron/internal/config"
	"github.com/heartmarshall/mtgportal-cron/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides card table persistence backed by PostgreSQL.
// All methods run inside the transaction carried by ctx, if any.
type Repo struct {
	pool    *pgxpool.Pool
	staging string
	live    string

	insertSQL string
}

// New creates a card table repository for the given staging/live pair.
func New(pool *pgxpool.Pool, staging, live string) (*Repo, error) {
	r := &Repo{pool: pool, staging: staging, live: live}

	cols := quotedColumns()
	query, _, err := psql.
		Insert(quote(staging)).
		Columns(cols...).
		Select(sq.Select(cols...).From("jsonb_populate_recordset(NULL::" + quote(staging) + ", ?)")).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert statement: %w", err)
	}
	r.insertSQL = query

	return r, nil
}

// StagingTable returns the staging table name.
func (r *Repo) StagingTable() string { return r.staging }

// LiveTable returns the live table name.
func (r *Repo) LiveTable() string { return r.live }

// EnsureTables creates the staging and live tables if they do not exist.
func (r *Repo) EnsureTables(ctx context.Context) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	for _, table := range []string{r.live, r.staging} {
		if _, err := q.Exec(ctx, createTableSQL(table)); err != nil {
			return &domain.PrepareError{Table: table, Err: postgres.MapError(err, "create table")}
		}
	}
	return nil
}

// VerifySchema compares both tables against Columns. Missing, extra or
// retyped columns are reported as domain.ErrSchemaMismatch.
func (r *Repo) VerifySchema(ctx context.Context) error {
	query, args, err := psql.
		Select("table_name", "column_name", "udt_name").
		From("information_schema.columns").
		Where("table_schema = current_schema()").
		Where(sq.Eq{"table_name": []string{r.staging, r.live}}).
		OrderBy("table_name", "ordinal_position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build schema query: %w", err)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return &domain.PrepareError{Table: r.staging, Err: postgres.MapError(err, "read schema")}
	}
	defer rows.Close()

	actual := map[string]map[string]string{r.staging: {}, r.live: {}}
	for rows.Next() {
		var table, column, udt string
		if err := rows.Scan(&table, &column, &udt); err != nil {
			return &domain.PrepareError{Table: r.staging, Err: postgres.MapError(err, "scan schema")}
		}
		actual[table][column] = udt
	}
	if err := rows.Err(); err != nil {
		return &domain.PrepareError{Table: r.staging, Err: postgres.MapError(err, "read schema")}
	}

	for _, table := range []string{r.live, r.staging} {
		if len(actual[table]) == 0 {
			return &domain.PrepareError{Table: table, Err: domain.ErrTableMissing}
		}
		if diff := schemaDiff(actual[table]); len(diff) > 0 {
			return &domain.PrepareError{
				Table: table,
				Err:   fmt.Errorf("%w: %s", domain.ErrSchemaMismatch, strings.Join(diff, "; ")),
			}
		}
	}
	return nil
}

// schemaDiff lists the differences between got (column -> udt) and Columns.
func schemaDiff(got map[string]string) []string {
	var diff []string
	want := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		want[c.Name] = struct{}{}
		udt, ok := got[c.Name]
		switch {
		case !ok:
			diff = append(diff, "missing column "+c.Name)
		case udt != c.UDT:
			diff = append(diff, fmt.Sprintf("column %s is %s, want %s", c.Name, udt, c.UDT))
		}
	}

	var extra []string
	for name := range got {
		if _, ok := want[name]; !ok {
			extra = append(extra, "unexpected column "+name)
		}
	}
	sort.Strings(extra)

	return append(diff, extra...)
}

// TruncateStaging removes every row from the staging table.
func (r *Repo) TruncateStaging(ctx context.Context) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)
	if _, err := q.Exec(ctx, "TRUNCATE TABLE "+quote(r.staging)); err != nil {
		return &domain.PrepareError{Table: r.staging, Err: postgres.MapError(err, "truncate")}
	}
	return nil
}

// InsertBatch inserts records into staging with a single statement.
// Records whose id already exists in staging are skipped; the first
// inserted version wins. Returns the number of rows actually inserted.
func (r *Repo) InsertBatch(ctx context.Context, records []domain.CardRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}

	// The whole batch travels as one jsonb parameter, so the statement never
	// approaches the bind parameter limit.
	q := postgres.QuerierFromCtx(ctx, r.pool)
	tag, err := q.Exec(ctx, r.insertSQL, payload)
	if err != nil {
		return 0, postgres.MapError(err, "insert into "+r.staging)
	}

	return int(tag.RowsAffected()), nil
}

// Promote exchanges staging and live by renaming through a swap name.
// Run it inside a transaction: the renames become visible together on commit.
func (r *Repo) Promote(ctx context.Context) error {
	swap := config.SwapTableName(r.live)
	steps := []struct {
		name     string
		from, to string
	}{
		{"staging to swap", r.staging, swap},
		{"live to staging", r.live, r.staging},
		{"swap to live", swap, r.live},
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	for _, s := range steps {
		stmt := "ALTER TABLE " + quote(s.from) + " RENAME TO " + quote(s.to)
		if _, err := q.Exec(ctx, stmt); err != nil {
			return &domain.PromoteError{Step: s.name, Err: postgres.MapError(err, "rename")}
		}
	}
	return nil
}
