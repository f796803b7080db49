package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/blockshield/internal/models"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
)

type fakeDB struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return nil, errors.New("unexpected Exec")
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{err: errors.New("unexpected QueryRow")}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, errors.New("unexpected Query")
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, errors.New("unexpected Begin")
	}
	return f.BeginFunc(ctx)
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (f fakeCommandTag) RowsAffected() int64 {
	return f.rowsAffected
}

type fakeRow struct {
	values []any
	err    error
}

func rowFromValues(values ...any) fakeRow {
	return fakeRow{values: values}
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(dest, r.values)
}

type fakeRows struct {
	rows    [][]any
	idx     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close() {
	r.closed = true
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return assignValues(dest, r.rows[r.idx-1])
}

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		if values[i] == nil {
			dv.Elem().Set(reflect.Zero(dv.Elem().Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(dv.Elem().Type()) {
			if !v.Type().ConvertibleTo(dv.Elem().Type()) {
				return fmt.Errorf("scan: cannot assign %T to %s", values[i], dv.Elem().Type())
			}
			v = v.Convert(dv.Elem().Type())
		}
		dv.Elem().Set(v)
	}
	return nil
}

// fakeCache is an in-memory Cache.
type fakeCache struct {
	data      map[string]string
	ttl       map[string]time.Duration
	setErr    error
	getErr    error
	delErr    error
	expireErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = fmt.Sprint(value)
	c.ttl[key] = expiration
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	c.ttl[key] = expiration
	return c.expireErr
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	if c.delErr != nil {
		return c.delErr
	}
	for _, k := range keys {
		delete(c.data, k)
		delete(c.ttl, k)
	}
	return nil
}

// memCatalog is an in-memory blockCatalog.
type memCatalog struct {
	records   []models.BlockRecord
	insertErr error
	listErr   error
}

func (c *memCatalog) FindByOwnerAndTarget(ctx context.Context, ownerID, targetID string) (*models.BlockRecord, error) {
	for _, rec := range c.records {
		if rec.OwnerID == ownerID && rec.TargetID == targetID {
			found := rec
			return &found, nil
		}
	}
	return nil, reconcile.ErrRecordNotFound
}

func (c *memCatalog) Insert(ctx context.Context, params models.NewBlockRecordParams) (*models.BlockRecord, error) {
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	if params.OwnerID == params.TargetID {
		return nil, reconcile.ErrSelfBlock
	}
	if _, err := c.FindByOwnerAndTarget(ctx, params.OwnerID, params.TargetID); err == nil {
		return nil, reconcile.ErrDuplicateKey
	}
	rec := models.BlockRecord{
		ID:           uuid.New(),
		OwnerID:      params.OwnerID,
		TargetID:     params.TargetID,
		TargetHandle: params.TargetHandle,
		Origin:       params.Origin,
		Reason:       params.Reason,
		CreatedAt:    time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	if !params.CreatedAt.IsZero() {
		rec.CreatedAt = params.CreatedAt
	}
	c.records = append(c.records, rec)
	return &rec, nil
}

func (c *memCatalog) ListAll(ctx context.Context) ([]models.BlockRecord, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]models.BlockRecord(nil), c.records...), nil
}

func (c *memCatalog) ListByOwner(ctx context.Context, ownerID string) ([]models.BlockRecord, error) {
	out := []models.BlockRecord{}
	for _, rec := range c.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *memCatalog) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	for i, rec := range c.records {
		if rec.ID == id && rec.OwnerID == ownerID {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return nil
		}
	}
	return ErrBlockNotFound
}

type stubSource struct {
	createErr error
	created   []string
}

func (s *stubSource) ListBlocks(ctx context.Context, cursor string) (reconcile.Page, error) {
	return reconcile.Page{}, nil
}

func (s *stubSource) CreateBlock(ctx context.Context, targetID string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, targetID)
	return nil
}

type stubFactory struct {
	src *stubSource
	err error
}

func (f *stubFactory) ForAccount(ctx context.Context, account models.Account) (reconcile.RemoteSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.src, nil
}

type stubAccounts struct {
	accounts []models.Account
	err      error
}

func (s *stubAccounts) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts, s.err
}
