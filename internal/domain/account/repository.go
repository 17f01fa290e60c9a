package account

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Контракт для работы с хранилищем аккаунтов.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции над аккаунтами.
type Repository interface {
	// Create создаёт новый аккаунт.
	// Возвращает shared.ErrAccountAlreadyExists, если аккаунт уже существует.
	Create(ctx context.Context, acc *Account) error

	// GetByID возвращает аккаунт по ID.
	// Возвращает shared.ErrAccountNotFound, если аккаунт не найден.
	GetByID(ctx context.Context, id shared.AccountID) (*Account, error)

	// UpdateProgress сохраняет аккаунт со сравнением версии (compare-and-swap):
	// запись проходит только если версия в хранилище равна acc.Version-1.
	// Возвращает shared.ErrOptimisticLock при конфликте версий и
	// shared.ErrAccountNotFound, если аккаунт не найден.
	UpdateProgress(ctx context.Context, acc *Account) error

	// Exists проверяет существование аккаунта.
	Exists(ctx context.Context, id shared.AccountID) (bool, error)

	// Count возвращает общее количество аккаунтов.
	Count(ctx context.Context) (int, error)
}
