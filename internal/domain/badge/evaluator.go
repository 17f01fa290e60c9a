package badge

import (
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator оценивает каталог бейджей против статистики аккаунта.
// Чистая логика: оценка не мутирует ни каталог, ни статистику.
type Evaluator struct {
	catalog []Definition
	byID    map[shared.BadgeID]Definition
}

// NewEvaluator создаёт оценщик поверх каталога.
// Порядок каталога сохраняется - в нём же возвращаются новые бейджи.
func NewEvaluator(catalog []Definition) (*Evaluator, error) {
	byID := make(map[shared.BadgeID]Definition, len(catalog))
	for _, def := range catalog {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[def.ID]; dup {
			return nil, shared.NewDomainError("badge", "new_evaluator", shared.ErrValidation,
				"duplicate badge id in catalog: "+def.ID.String())
		}
		byID[def.ID] = def
	}
	return &Evaluator{catalog: catalog, byID: byID}, nil
}

// Catalog возвращает определения в каноническом порядке.
func (e *Evaluator) Catalog() []Definition {
	out := make([]Definition, len(e.catalog))
	copy(out, e.catalog)
	return out
}

// GetDefinition возвращает определение бейджа по ID.
// Возвращает shared.ErrBadgeNotFound для неизвестного ID.
func (e *Evaluator) GetDefinition(id shared.BadgeID) (Definition, error) {
	def, ok := e.byID[id]
	if !ok {
		return Definition{}, shared.ErrBadgeNotFound
	}
	return def, nil
}

// EvaluateNewlyEarned возвращает бейджи, критерии которых выполнены
// статистикой, но которые ещё не входят в already (уже выданные).
// Результат - в порядке каталога.
func (e *Evaluator) EvaluateNewlyEarned(stats map[string]int, already []shared.BadgeID) []Definition {
	owned := make(map[shared.BadgeID]struct{}, len(already))
	for _, id := range already {
		owned[id] = struct{}{}
	}

	var earned []Definition
	for _, def := range e.catalog {
		if _, has := owned[def.ID]; has {
			continue
		}
		if def.Criterion.Met(stats) {
			earned = append(earned, def)
		}
	}
	return earned
}
