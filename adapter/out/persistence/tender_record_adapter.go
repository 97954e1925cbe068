// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tender_server/core/domain"
	"tender_server/core/port/out"
)

// RecordAdapter implements out.RecordRepository using PostgreSQL.
type RecordAdapter struct {
	db *sqlx.DB
}

// NewRecordAdapter creates a new RecordAdapter.
func NewRecordAdapter(db *sqlx.DB) *RecordAdapter {
	return &RecordAdapter{db: db}
}

var _ out.RecordRepository = (*RecordAdapter)(nil)

// recordRow represents the database row for a canonical record.
type recordRow struct {
	ID             int64           `db:"id"`
	TenantID       uuid.UUID       `db:"tenant_id"`
	Portal         string          `db:"portal"`
	NaturalKey     string          `db:"natural_key"`
	ExternalRef    sql.NullString  `db:"external_ref"`
	SourceURL      sql.NullString  `db:"source_url"`
	Title          sql.NullString  `db:"title"`
	OriginalTitle  sql.NullString  `db:"original_title"`
	BuyerName      sql.NullString  `db:"buyer_name"`
	PublishedAt    sql.NullTime    `db:"published_at"`
	ClosesAt       sql.NullTime    `db:"closes_at"`
	EstimatedValue sql.NullFloat64 `db:"estimated_value"`
	Currency       sql.NullString  `db:"currency"`
	ListingType    sql.NullString  `db:"listing_type"`
	Sector         sql.NullString  `db:"sector"`
	Embedding      pq.Float64Array `db:"embedding"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (r *recordRow) toDomain() *domain.CanonicalRecord {
	record := &domain.CanonicalRecord{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Portal:        r.Portal,
		ExternalRef:   r.ExternalRef.String,
		SourceURL:     r.SourceURL.String,
		Title:         r.Title.String,
		OriginalTitle: r.OriginalTitle.String,
		BuyerName:     r.BuyerName.String,
		Currency:      r.Currency.String,
		ListingType:   r.ListingType.String,
		Sector:        r.Sector.String,
		Embedding:     toFloat32(r.Embedding),
		Status:        domain.ListingStatus(r.Status),
		CreatedAt:     r.CreatedAt,
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time
		record.PublishedAt = &t
	}
	if r.ClosesAt.Valid {
		t := r.ClosesAt.Time
		record.ClosesAt = &t
	}
	if r.EstimatedValue.Valid {
		v := r.EstimatedValue.Float64
		record.EstimatedValue = &v
	}
	return record
}

const recordColumns = `
	id, tenant_id, portal, natural_key, external_ref, source_url, title,
	original_title, buyer_name, published_at, closes_at, estimated_value,
	currency, listing_type, sector, embedding, status, created_at`

// Replace upserts by natural key: delete the prior row, insert the new one,
// one transaction. Replacement is wholesale, fields are never merged.
func (a *RecordAdapter) Replace(ctx context.Context, record *domain.CanonicalRecord) (*domain.CanonicalRecord, error) {
	key := record.NaturalKey()

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, mapError("record replace", key, err)
	}
	defer tx.Rollback()

	const deleteQuery = `
		DELETE FROM tender_records
		WHERE tenant_id = $1 AND portal = $2 AND natural_key = $3
	`
	if _, err := tx.ExecContext(ctx, deleteQuery, record.TenantID, record.Portal, key); err != nil {
		return nil, mapError("record replace", key, err)
	}

	const insertQuery = `
		INSERT INTO tender_records (
			tenant_id, portal, natural_key, external_ref, source_url, title,
			original_title, buyer_name, published_at, closes_at,
			estimated_value, currency, listing_type, sector, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	var id int64
	err = tx.QueryRowxContext(ctx, insertQuery,
		record.TenantID, record.Portal, key,
		nullString(record.ExternalRef), nullString(record.SourceURL),
		nullString(record.Title), nullString(record.OriginalTitle),
		nullString(record.BuyerName),
		nullTime(record.PublishedAt), nullTime(record.ClosesAt),
		nullFloat(record.EstimatedValue), nullString(record.Currency),
		nullString(record.ListingType), nullString(record.Sector),
		string(record.Status), record.CreatedAt,
	).Scan(&id)
	if err != nil {
		return nil, mapError("record replace", key, err)
	}

	if record.BuyerName != "" {
		if err := upsertBuyerTx(ctx, tx, record.TenantID, record.BuyerName); err != nil {
			return nil, mapError("buyer upsert", record.BuyerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError("record replace", key, err)
	}
	record.ID = id
	return record, nil
}

// GetByID retrieves a single record.
func (a *RecordAdapter) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.CanonicalRecord, error) {
	const query = `
		SELECT ` + recordColumns + `
		FROM tender_records
		WHERE tenant_id = $1 AND id = $2
	`
	var row recordRow
	if err := a.db.GetContext(ctx, &row, query, tenantID, id); err != nil {
		return nil, mapError("record", "", err)
	}
	return row.toDomain(), nil
}

// List selects records matching the filter, newest first.
func (a *RecordAdapter) List(ctx context.Context, filter *domain.RecordFilter) ([]*domain.CanonicalRecord, error) {
	builder := sq.Select(
		"id", "tenant_id", "portal", "natural_key", "external_ref",
		"source_url", "title", "original_title", "buyer_name", "published_at",
		"closes_at", "estimated_value", "currency", "listing_type", "sector",
		"embedding", "status", "created_at",
	).
		From("tender_records").
		Where(sq.Eq{"tenant_id": filter.TenantID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Portal != "" {
		builder = builder.Where(sq.Eq{"portal": filter.Portal})
	}
	if filter.From != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(sq.Lt{"created_at": *filter.To})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError("record list", "", err)
	}

	var rows []recordRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("record list", "", err)
	}
	records := make([]*domain.CanonicalRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toDomain()
	}
	return records, nil
}

// SaveEmbedding persists a record's computed embedding.
func (a *RecordAdapter) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	const query = `UPDATE tender_records SET embedding = $2 WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query, id, toFloat64(embedding))
	return mapError("record embedding", "", err)
}

// CleanupDuplicates removes all but the most recently created row per
// (portal, external_ref). A safety net for rows that predate
// delete-then-insert semantics; rows without an external reference are left
// alone.
func (a *RecordAdapter) CleanupDuplicates(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	const query = `
		DELETE FROM tender_records
		WHERE tenant_id = $1 AND external_ref IS NOT NULL AND id NOT IN (
			SELECT MAX(id) FROM tender_records
			WHERE tenant_id = $1 AND external_ref IS NOT NULL
			GROUP BY portal, external_ref
		)
	`
	result, err := a.db.ExecContext(ctx, query, tenantID)
	if err != nil {
		return 0, mapError("record cleanup", "", err)
	}
	removed, _ := result.RowsAffected()
	return removed, nil
}

// UpsertBuyer ensures a buyer reference row exists for the name.
func (a *RecordAdapter) UpsertBuyer(ctx context.Context, tenantID uuid.UUID, name string) (*domain.BuyerRef, error) {
	const query = `
		INSERT INTO tender_buyers (tenant_id, name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id int64
	if err := a.db.QueryRowxContext(ctx, query, tenantID, name).Scan(&id); err != nil {
		return nil, mapError("buyer upsert", name, err)
	}
	return &domain.BuyerRef{ID: id, TenantID: tenantID, Name: name}, nil
}

func upsertBuyerTx(ctx context.Context, tx *sqlx.Tx, tenantID uuid.UUID, name string) error {
	const query = `
		INSERT INTO tender_buyers (tenant_id, name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id, name) DO NOTHING
	`
	_, err := tx.ExecContext(ctx, query, tenantID, name)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func toFloat64(v []float32) pq.Float64Array {
	if len(v) == 0 {
		return nil
	}
	out := make(pq.Float64Array, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v pq.Float64Array) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
