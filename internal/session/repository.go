// Package session holds the signed-in identity and the account operations
// behind the browser's login gate.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/runger/dishdex/internal/storage"
)

// Keys used in the credential store.
const (
	KeyLogin = "login"
	KeyUser  = "user"
	KeyUsers = "users"
)

// Repository is the credential store. Get reports ok=false for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// MemoryRepository keeps credentials in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]string)}
}

func (r *MemoryRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemoryRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *MemoryRepository) Clear(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// KV is the subset of storage.Store the SQLite repository needs.
type KV interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// StoreRepository keeps credentials in the kv table of the state database.
type StoreRepository struct {
	kv KV
}

// NewStoreRepository wraps kv.
func NewStoreRepository(kv KV) *StoreRepository {
	return &StoreRepository{kv: kv}
}

func (r *StoreRepository) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.kv.GetValue(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *StoreRepository) Set(ctx context.Context, key, value string) error {
	return r.kv.SetValue(ctx, key, value)
}

func (r *StoreRepository) Clear(ctx context.Context, key string) error {
	return r.kv.DeleteValue(ctx, key)
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*StoreRepository)(nil)
	_ KV         = (*storage.SQLiteStore)(nil)
)
