package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

var ErrBlockNotFound = errors.New("block not found")

const uniqueViolation = "23505"

const blockRecordColumns = `id, owner_did, target_did, target_handle, origin, reason, created_at`

// CatalogStore persists block records in PostgreSQL.
type CatalogStore struct {
	db DB
}

var _ reconcile.Catalog = (*CatalogStore)(nil)

func NewCatalogStore(db DB) *CatalogStore {
	return &CatalogStore{db: db}
}

func (s *CatalogStore) FindByOwnerAndTarget(ctx context.Context, ownerID, targetID string) (*models.BlockRecord, error) {
	rec, err := scanBlockRecord(s.db.QueryRow(ctx,
		`SELECT `+blockRecordColumns+`
		 FROM block_records WHERE owner_did = $1 AND target_did = $2`,
		ownerID, targetID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, reconcile.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find block record: %w", err)
	}
	return rec, nil
}

// Insert stores a new record. A record for the same (owner, target) pair
// yields reconcile.ErrDuplicateKey.
func (s *CatalogStore) Insert(ctx context.Context, params models.NewBlockRecordParams) (*models.BlockRecord, error) {
	if reconcile.IsSelfBlock(params.OwnerID, params.TargetID) {
		return nil, reconcile.ErrSelfBlock
	}
	if !params.Origin.Valid() {
		return nil, fmt.Errorf("invalid block origin %q", params.Origin)
	}
	reason := params.Reason
	if reason == "" {
		reason = params.Origin.DefaultReason()
	}

	rec, err := scanBlockRecord(s.db.QueryRow(ctx,
		`INSERT INTO block_records (owner_did, target_did, target_handle, origin, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, now()))
		 RETURNING `+blockRecordColumns,
		params.OwnerID, params.TargetID, params.TargetHandle, string(params.Origin), reason, createdAt(params.CreatedAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, reconcile.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert block record: %w", err)
	}
	return rec, nil
}

func createdAt(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *CatalogStore) ListAll(ctx context.Context) ([]models.BlockRecord, error) {
	return s.list(ctx,
		`SELECT `+blockRecordColumns+` FROM block_records ORDER BY created_at, id`)
}

func (s *CatalogStore) ListByOwner(ctx context.Context, ownerID string) ([]models.BlockRecord, error) {
	return s.list(ctx,
		`SELECT `+blockRecordColumns+` FROM block_records
		 WHERE owner_did = $1 ORDER BY created_at DESC, id`,
		ownerID)
}

// Delete removes one of ownerID's records.
func (s *CatalogStore) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		"DELETE FROM block_records WHERE id = $1 AND owner_did = $2",
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete block record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (s *CatalogStore) list(ctx context.Context, sql string, args ...any) ([]models.BlockRecord, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list block records: %w", err)
	}
	defer rows.Close()

	records := []models.BlockRecord{}
	for rows.Next() {
		rec, err := scanBlockRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list block records: %w", err)
	}
	return records, nil
}

func scanBlockRecord(row Row) (*models.BlockRecord, error) {
	var rec models.BlockRecord
	var origin string
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.TargetID, &rec.TargetHandle, &origin, &rec.Reason, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Origin = models.BlockOrigin(origin)
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
