package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

func blockRow(id uuid.UUID, owner, target string, origin models.BlockOrigin) []any {
	return []any{id, owner, target, target + ".test", string(origin), origin.DefaultReason(), time.Now()}
}

func TestCatalogStore_Insert_SelfBlock(t *testing.T) {
	store := NewCatalogStore(&fakeDB{})
	_, err := store.Insert(context.Background(), models.NewBlockRecordParams{
		OwnerID: "did:plc:a", TargetID: "did:plc:a", Origin: models.OriginManual,
	})
	if !errors.Is(err, reconcile.ErrSelfBlock) {
		t.Fatalf("expected ErrSelfBlock, got %v", err)
	}
}

func TestCatalogStore_Insert_InvalidOrigin(t *testing.T) {
	store := NewCatalogStore(&fakeDB{})
	_, err := store.Insert(context.Background(), models.NewBlockRecordParams{
		OwnerID: "did:plc:a", TargetID: "did:plc:b", Origin: "bogus",
	})
	if err == nil {
		t.Fatal("expected error for invalid origin")
	}
}

func TestCatalogStore_Insert_DefaultReason(t *testing.T) {
	id := uuid.New()
	var gotReason any
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "INSERT INTO block_records") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			gotReason = args[4]
			return rowFromValues(blockRow(id, "did:plc:a", "did:plc:b", models.OriginImported)...)
		},
	}
	rec, err := NewCatalogStore(db).Insert(context.Background(), models.NewBlockRecordParams{
		OwnerID: "did:plc:a", TargetID: "did:plc:b", Origin: models.OriginImported,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReason != models.ReasonImported {
		t.Fatalf("expected default reason, got %v", gotReason)
	}
	if rec.ID != id || rec.Origin != models.OriginImported {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCatalogStore_Insert_CreatedAt(t *testing.T) {
	added := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   time.Time
		want any
	}{
		{"zero defaults to now", time.Time{}, (*time.Time)(nil)},
		{"set is passed through", added, &added},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got any
			db := &fakeDB{
				QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
					if !strings.Contains(sql, "COALESCE($6::timestamptz, now())") {
						t.Fatalf("unexpected sql: %q", sql)
					}
					got = args[5]
					return rowFromValues(blockRow(uuid.New(), "did:plc:a", "did:plc:b", models.OriginManual)...)
				},
			}
			_, err := NewCatalogStore(db).Insert(context.Background(), models.NewBlockRecordParams{
				OwnerID: "did:plc:a", TargetID: "did:plc:b", Origin: models.OriginManual, CreatedAt: tt.in,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotTime, _ := got.(*time.Time)
			wantTime, _ := tt.want.(*time.Time)
			if (gotTime == nil) != (wantTime == nil) || (gotTime != nil && !gotTime.Equal(*wantTime)) {
				t.Fatalf("expected created_at arg %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCatalogStore_Insert_UniqueViolation(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{err: &pgconn.PgError{Code: "23505"}}
		},
	}
	_, err := NewCatalogStore(db).Insert(context.Background(), models.NewBlockRecordParams{
		OwnerID: "did:plc:a", TargetID: "did:plc:b", Origin: models.OriginManual,
	})
	if !errors.Is(err, reconcile.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCatalogStore_Insert_OtherError(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{err: errors.New("connection reset")}
		},
	}
	_, err := NewCatalogStore(db).Insert(context.Background(), models.NewBlockRecordParams{
		OwnerID: "did:plc:a", TargetID: "did:plc:b", Origin: models.OriginManual,
	})
	if err == nil || errors.Is(err, reconcile.ErrDuplicateKey) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestCatalogStore_FindByOwnerAndTarget_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{err: pgx.ErrNoRows}
		},
	}
	_, err := NewCatalogStore(db).FindByOwnerAndTarget(context.Background(), "did:plc:a", "did:plc:b")
	if !errors.Is(err, reconcile.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCatalogStore_ListByOwner(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		blockRow(uuid.New(), "did:plc:a", "did:plc:b", models.OriginManual),
		blockRow(uuid.New(), "did:plc:a", "did:plc:c", models.OriginCommunity),
	}}
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if !strings.Contains(sql, "WHERE owner_did = $1") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			if args[0] != "did:plc:a" {
				t.Fatalf("unexpected owner arg: %v", args[0])
			}
			return rows, nil
		},
	}
	records, err := NewCatalogStore(db).ListByOwner(context.Background(), "did:plc:a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Origin != models.OriginCommunity {
		t.Fatalf("unexpected origin: %q", records[1].Origin)
	}
	if !rows.closed {
		t.Fatal("expected rows to be closed")
	}
}

func TestCatalogStore_ListAll_Empty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}
	records, err := NewCatalogStore(db).ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestCatalogStore_ListAll_RowsError(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{err: errors.New("stream broken")}, nil
		},
	}
	if _, err := NewCatalogStore(db).ListAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCatalogStore_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"deleted", 1, nil},
		{"not found", 0, ErrBlockNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{
				ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
					if !strings.Contains(sql, "DELETE FROM block_records") {
						t.Fatalf("unexpected sql: %q", sql)
					}
					return fakeCommandTag{rowsAffected: tt.affected}, nil
				},
			}
			err := NewCatalogStore(db).Delete(context.Background(), "did:plc:a", uuid.New())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
