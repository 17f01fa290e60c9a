// Package memory содержит in-memory реализации хранилищ.
// Используется в тестах и при локальной разработке без внешних сервисов.
package memory

import (
	"context"
	"sync"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// AccountRepository - потокобезопасное in-memory хранилище аккаунтов.
// Семантика версий совпадает с postgres-реализацией: UpdateProgress
// проходит только при совпадении ожидаемой версии.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[shared.AccountID]*account.Account
}

// NewAccountRepository создаёт пустое хранилище.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[shared.AccountID]*account.Account),
	}
}

// Create создаёт новый аккаунт.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[acc.ID]; exists {
		return shared.ErrAccountAlreadyExists
	}

	r.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

// GetByID возвращает копию аккаунта: мутации вызывающей стороны
// не видны хранилищу до UpdateProgress.
func (r *AccountRepository) GetByID(ctx context.Context, id shared.AccountID) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

// UpdateProgress сохраняет аккаунт через compare-and-swap по версии.
func (r *AccountRepository) UpdateProgress(ctx context.Context, acc *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[acc.ID]
	if !ok {
		return shared.ErrAccountNotFound
	}

	// Вызывающая сторона уже инкрементировала версию через Touch.
	if stored.Version != acc.Version-1 {
		return shared.ErrOptimisticLock
	}

	r.accounts[acc.ID] = cloneAccount(acc)
	return nil
}

// Exists проверяет существование аккаунта.
func (r *AccountRepository) Exists(ctx context.Context, id shared.AccountID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[id]
	return ok, nil
}

// Count возвращает количество аккаунтов.
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.accounts), nil
}

// All возвращает копии всех аккаунтов. Используется in-memory
// представлением рейтинга.
func (r *AccountRepository) All(ctx context.Context) ([]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*account.Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		out = append(out, cloneAccount(acc))
	}
	return out, nil
}

func cloneAccount(acc *account.Account) *account.Account {
	cp := *acc
	if acc.LastActivityAt != nil {
		t := *acc.LastActivityAt
		cp.LastActivityAt = &t
	}
	return &cp
}
