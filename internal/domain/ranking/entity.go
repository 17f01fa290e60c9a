// Package ranking содержит доменную модель рейтинга учащихся.
// Рейтинг - это производная проекция аккаунтов: единый тотальный порядок
// по очкам, где ничьи разрешаются в пользу более старого аккаунта.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию аккаунта в рейтинге.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если аккаунт в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	// AccountID - идентификатор аккаунта.
	AccountID shared.AccountID

	// DisplayName - отображаемое имя на момент чтения.
	DisplayName string

	// Points - очки, по которым строится порядок.
	Points int

	// Level - уровень (денормализован для отображения).
	Level int

	// Streak - текущая серия (денормализована для отображения).
	Streak int

	// CreatedAt - время создания аккаунта, ключ разрешения ничьих.
	CreatedAt time.Time

	// Rank - позиция в тотальном порядке, начиная с 1.
	Rank Rank
}

// Less задаёт тотальный порядок рейтинга: больше очков - выше;
// при равных очках выше более старый аккаунт.
func (e Entry) Less(other Entry) bool {
	if e.Points != other.Points {
		return e.Points > other.Points
	}
	return e.CreatedAt.Before(other.CreatedAt)
}

// SortEntries сортирует срез в каноническом порядке рейтинга и
// проставляет ранги начиная с 1.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
	for i := range entries {
		entries[i].Rank = Rank(i + 1)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PAGE
// ══════════════════════════════════════════════════════════════════════════════

// Page - страница рейтинга с метаданными пагинации.
type Page struct {
	Entries []Entry
	Offset  int
	Limit   int
	Total   int
}

// HasMore возвращает true, если за этой страницей есть ещё записи.
func (p Page) HasMore() bool {
	return p.Offset+len(p.Entries) < p.Total
}
