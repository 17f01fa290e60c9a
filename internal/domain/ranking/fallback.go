package ranking

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// FallbackView обслуживает чтения из быстрого представления (кеша) и
// переключается на авторитетное, когда быстрое недоступно или холодное.
// Холодный кеш отличим от пустого рейтинга только через авторитетный
// источник, поэтому пустой ответ кеша всегда перепроверяется.
type FallbackView struct {
	fast          View
	authoritative View
}

// NewFallbackView создаёт представление с откатом на авторитетный источник.
func NewFallbackView(fast, authoritative View) *FallbackView {
	return &FallbackView{fast: fast, authoritative: authoritative}
}

// GetPage возвращает страницу из кеша; при ошибке или пустом кеше -
// из авторитетного представления.
func (v *FallbackView) GetPage(ctx context.Context, p shared.Pagination) (Page, error) {
	page, err := v.fast.GetPage(ctx, p)
	if err == nil && page.Total > 0 {
		return page, nil
	}
	return v.authoritative.GetPage(ctx, p)
}

// GetRank возвращает строку аккаунта из кеша; промах кеша (в том числе
// рассинхронизация после рестарта Redis) уходит в авторитетный источник.
func (v *FallbackView) GetRank(ctx context.Context, accountID shared.AccountID) (Entry, error) {
	entry, err := v.fast.GetRank(ctx, accountID)
	if err == nil {
		return entry, nil
	}
	return v.authoritative.GetRank(ctx, accountID)
}

// TotalCount возвращает количество участников.
func (v *FallbackView) TotalCount(ctx context.Context) (int, error) {
	n, err := v.fast.TotalCount(ctx)
	if err == nil && n > 0 {
		return n, nil
	}
	return v.authoritative.TotalCount(ctx)
}
