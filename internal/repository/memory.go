package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"jewelflow/internal/model"
)

// MemoryUserRepository keeps accounts in process memory. It is the default
// store when no DATABASE_URL is configured.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.Account
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    map[string]model.Account{},
		byEmail: map[string]string{},
	}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return model.Account{}, model.ErrUserNotFound
	}
	return a, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return model.Account{}, model.ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) Create(_ context.Context, a model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(a.Email)
	if _, exists := r.byEmail[key]; exists {
		return model.ErrUserAlreadyExists
	}
	r.byID[a.ID] = a
	r.byEmail[key] = a.ID
	return nil
}

func (r *MemoryUserRepository) IncrementFailedAttempts(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	a.FailedLoginAttempts++
	a.UpdatedAt = time.Now().UTC()
	r.byID[userID] = a
	return a.FailedLoginAttempts, nil
}

func (r *MemoryUserRepository) LockAccount(_ context.Context, userID string, until time.Time) error {
	return r.update(userID, func(a *model.Account) { a.LockedUntil = &until })
}

func (r *MemoryUserRepository) ResetFailedAttempts(_ context.Context, userID string) error {
	return r.update(userID, func(a *model.Account) {
		a.FailedLoginAttempts = 0
		a.LockedUntil = nil
	})
}

func (r *MemoryUserRepository) update(userID string, fn func(a *model.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	fn(&a)
	a.UpdatedAt = time.Now().UTC()
	r.byID[userID] = a
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
}

type MemoryTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]refreshRecord
	now    func() time.Time
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{tokens: map[string]refreshRecord{}, now: time.Now}
}

func (r *MemoryTokenRepository) Store(_ context.Context, token string, userID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = refreshRecord{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *MemoryTokenRepository) Validate(_ context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tokens[token]
	if !ok || !rec.expiresAt.After(r.now()) {
		return "", model.ErrTokenNotFound
	}
	return rec.userID, nil
}

func (r *MemoryTokenRepository) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, rec := range r.tokens {
		if rec.userID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func (r *MemoryTokenRepository) CleanExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	now := r.now()
	for token, rec := range r.tokens {
		if !rec.expiresAt.After(now) {
			delete(r.tokens, token)
			removed++
		}
	}
	return removed, nil
}

type MemoryCategoryRepository struct {
	mu     sync.RWMutex
	rows   map[int64]model.Category
	nextID int64
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{rows: map[int64]model.Category{}, nextID: 1}
}

func (r *MemoryCategoryRepository) List(_ context.Context) ([]model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Category, 0, len(r.rows))
	for _, c := range r.rows {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b model.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *MemoryCategoryRepository) FindByID(_ context.Context, id int64) (model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.rows[id]
	if !ok {
		return model.Category{}, model.ErrCategoryNotFound
	}
	return c, nil
}

func (r *MemoryCategoryRepository) Create(_ context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(c.Name, 0) {
		return model.ErrCategoryExists
	}
	c.ID = r.nextID
	r.nextID++
	r.rows[c.ID] = *c
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, c model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[c.ID]; !ok {
		return model.ErrCategoryNotFound
	}
	if r.nameTakenLocked(c.Name, c.ID) {
		return model.ErrCategoryExists
	}
	r.rows[c.ID] = c
	return nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return model.ErrCategoryNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryCategoryRepository) DeleteMany(_ context.Context, ids []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryCategoryRepository) nameTakenLocked(name string, exceptID int64) bool {
	for id, c := range r.rows {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
