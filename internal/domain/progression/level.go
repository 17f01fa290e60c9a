// Package progression содержит чистую доменную логику прогрессии Lingo Hub:
// функцию уровней и резолвер ежедневной серии. Здесь нет состояния
// и нет внешних зависимостей.
package progression

import (
	"math"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL FUNCTION
// Кривая роста: PointsRequiredFor(L) = (L-1)^2 * K. Каждый следующий уровень
// требует строго больше дополнительных очков, чем предыдущий.
// ══════════════════════════════════════════════════════════════════════════════

// Level представляет уровень аккаунта, вычисляемый из очков.
type Level int

// MinLevel - минимальный уровень. LevelOf(0) == MinLevel.
const MinLevel Level = 1

// LevelCurveK - коэффициент кривой роста уровней.
const LevelCurveK = 100

// Int возвращает числовое значение уровня.
func (l Level) Int() int {
	return int(l)
}

// IsValid проверяет, что уровень не ниже минимального.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// LevelOf вычисляет уровень по общему количеству очков.
// Отрицательные очки - это ошибка вызывающего кода, а не данные:
// возвращаем ошибку, не подменяя значение молча.
func LevelOf(points int) (Level, error) {
	if points < 0 {
		return 0, shared.NewDomainError("progression", "LevelOf", shared.ErrNegativeValue, "points cannot be negative")
	}

	// Обратная функция кривой: L = floor(sqrt(points/K)) + 1.
	level := Level(math.Sqrt(float64(points)/float64(LevelCurveK))) + 1

	// Страховка от погрешности float вблизи границ уровня.
	for PointsRequiredFor(level+1) <= points {
		level++
	}
	for level > MinLevel && PointsRequiredFor(level) > points {
		level--
	}

	return level, nil
}

// PointsRequiredFor возвращает минимальное количество очков,
// необходимое для достижения уровня. Строго возрастает по уровню.
func PointsRequiredFor(level Level) int {
	if level <= MinLevel {
		return 0
	}
	n := int(level) - 1
	return n * n * LevelCurveK
}

// ProgressWithinLevel возвращает прогресс внутри текущего уровня:
// сколько очков набрано сверх порога уровня и сколько всего нужно
// до следующего. Используется для прогресс-баров.
func ProgressWithinLevel(points int) (gained, span int, err error) {
	level, err := LevelOf(points)
	if err != nil {
		return 0, 0, err
	}

	floor := PointsRequiredFor(level)
	ceil := PointsRequiredFor(level + 1)

	return points - floor, ceil - floor, nil
}
