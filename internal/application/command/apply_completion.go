// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/progression"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
	"github.com/lingo-hub/lingo-progress-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY COMPLETION COMMAND
// The single write path of the progress engine: one completion event comes in,
// points, level, streak, counters and badge awards come out - atomically per
// account. Concurrent completions for the same account serialize through an
// optimistic version check with a bounded retry.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyCompletionCommand contains the data of one completion event.
type ApplyCompletionCommand struct {
	// AccountID is the account the completion belongs to.
	AccountID shared.AccountID

	// Kind is the type of the completed learning unit.
	Kind account.CompletionKind

	// Points is the non-negative point reward of the completion.
	Points int

	// Perfect marks a completion with a perfect score.
	Perfect bool

	// OccurredAt is when the completion happened (defaults to now if zero).
	OccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ApplyCompletionCommand) Validate() error {
	if err := c.AccountID.Validate(); err != nil {
		return err
	}
	if !c.Kind.IsValid() {
		return shared.NewDomainError("ledger", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("unknown completion kind: %s", c.Kind))
	}
	if c.Points < 0 {
		return shared.ErrNegativePoints
	}
	return nil
}

// ApplyCompletionResult contains the outcome of applying a completion.
type ApplyCompletionResult struct {
	// AccountID is the affected account.
	AccountID shared.AccountID `json:"account_id"`

	// PointsGained is the delta applied by this completion.
	PointsGained int `json:"points_gained"`

	// TotalPoints is the account total after the completion.
	TotalPoints int `json:"total_points"`

	// Level is the level after the completion.
	Level progression.Level `json:"level"`

	// LeveledUp indicates the completion crossed a level threshold.
	LeveledUp bool `json:"leveled_up"`

	// Streak is the streak after the completion.
	Streak int `json:"streak"`

	// StreakChanged indicates the streak value changed.
	StreakChanged bool `json:"streak_changed"`

	// StreakBroken indicates a running streak was reset.
	StreakBroken bool `json:"streak_broken"`

	// NewBadges lists badges first awarded by this completion,
	// in catalog order. Resubmitting the same progress never
	// re-awards a badge.
	NewBadges []shared.BadgeID `json:"new_badges"`

	// Events contains domain events generated.
	Events []shared.Event `json:"-"`

	// AppliedAt is the event time the ledger recorded.
	AppliedAt time.Time `json:"applied_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ApplyCompletionHandler handles the ApplyCompletionCommand.
type ApplyCompletionHandler struct {
	accounts  account.Repository
	awards    badge.AwardRepository
	evaluator *badge.Evaluator
	publisher shared.EventPublisher
	cache     ranking.Cache
	retrier   *retry.Retrier
	cacheTry  *retry.Retrier
	log       *logger.Logger
}

// NewApplyCompletionHandler creates a new ApplyCompletionHandler.
// cache may be nil; ranking cache updates are best-effort either way.
func NewApplyCompletionHandler(
	accounts account.Repository,
	awards badge.AwardRepository,
	evaluator *badge.Evaluator,
	publisher shared.EventPublisher,
	cache ranking.Cache,
	log *logger.Logger,
) *ApplyCompletionHandler {
	return &ApplyCompletionHandler{
		accounts:  accounts,
		awards:    awards,
		evaluator: evaluator,
		publisher: publisher,
		cache:     cache,
		retrier:   retry.LedgerRetrier(),
		cacheTry:  retry.CacheRetrier(),
		log:       log.With(logger.Component("apply_completion")),
	}
}

// WithRetrier replaces the conflict-retry policy.
func (h *ApplyCompletionHandler) WithRetrier(r *retry.Retrier) *ApplyCompletionHandler {
	h.retrier = r
	return h
}

// Handle executes the apply completion command.
func (h *ApplyCompletionHandler) Handle(ctx context.Context, cmd ApplyCompletionCommand) (*ApplyCompletionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("apply_completion: validation failed: %w", err)
	}

	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var result *ApplyCompletionResult

	// Каждая попытка перечитывает аккаунт и применяет событие к свежему
	// состоянию: при конфликте версий нельзя досохранять устаревшую копию.
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		res, err := h.applyOnce(ctx, cmd, occurredAt)
		if err != nil {
			if errors.Is(err, shared.ErrOptimisticLock) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		}
		result = res
		return nil
	})
	if err != nil {
		// Истёкший дедлайн до фиксации - таймаут, а не внутренняя ошибка:
		// вызывающий вправе повторить запрос целиком.
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.Warn("completion did not commit before deadline",
				logger.AccountID(cmd.AccountID.String()), logger.Err(err))
			return nil, shared.ErrLedgerTimeout
		}
		if errors.Is(err, shared.ErrOptimisticLock) {
			h.log.Warn("completion lost the version race after all retries",
				logger.AccountID(cmd.AccountID.String()))
			return nil, shared.ErrContention
		}
		return nil, err
	}

	// Награды и события - после успешной записи прогресса: бейджи
	// оцениваются по уже зафиксированному состоянию.
	h.awardNewBadges(ctx, cmd, result, occurredAt)

	for _, event := range result.Events {
		if err := h.publisher.Publish(event); err != nil {
			h.log.Warn("event publish failed",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}

	h.refreshRankingCache(ctx, result)

	h.log.Info("completion applied",
		logger.AccountID(result.AccountID.String()),
		logger.PointsDelta(result.PointsGained),
		logger.LevelValue(int(result.Level)),
		logger.StreakValue(result.Streak),
		logger.Int("new_badges", len(result.NewBadges)))

	return result, nil
}

// applyOnce applies the completion against the current stored state.
// Returns shared.ErrOptimisticLock when a concurrent writer won the version race.
func (h *ApplyCompletionHandler) applyOnce(
	ctx context.Context,
	cmd ApplyCompletionCommand,
	occurredAt time.Time,
) (*ApplyCompletionResult, error) {
	acc, err := h.accounts.GetByID(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}

	streakBefore := acc.Streak
	streakRes := progression.ResolveStreak(acc.LastActivityAt, acc.Streak, occurredAt)

	leveledUp, err := acc.ApplyGain(cmd.Points)
	if err != nil {
		return nil, err
	}

	acc.ApplyStreak(streakRes, occurredAt)
	acc.RecordCompletion(cmd.Kind, cmd.Perfect)
	acc.Touch(time.Now().UTC())

	if err := h.accounts.UpdateProgress(ctx, acc); err != nil {
		return nil, err
	}

	result := &ApplyCompletionResult{
		AccountID:     acc.ID,
		PointsGained:  cmd.Points,
		TotalPoints:   acc.Points,
		Level:         acc.Level,
		LeveledUp:     leveledUp,
		Streak:        acc.Streak,
		StreakChanged: streakRes.Changed,
		StreakBroken:  streakRes.Broken,
		AppliedAt:     occurredAt,
		Events:        make([]shared.Event, 0, 4),
	}

	if cmd.Points > 0 {
		result.Events = append(result.Events, h.withCorrelation(cmd,
			shared.NewPointsGainedEvent(acc.ID.String(), cmd.Points, acc.Points, string(cmd.Kind))))
	}
	if leveledUp {
		levelBefore, _ := progression.LevelOf(acc.Points - cmd.Points)
		result.Events = append(result.Events, h.withCorrelation(cmd,
			shared.NewLevelUpEvent(acc.ID.String(), int(levelBefore), int(acc.Level), acc.Points)))
	}
	if streakRes.Broken {
		result.Events = append(result.Events, h.withCorrelation(cmd,
			shared.NewStreakBrokenEvent(acc.ID.String(), streakBefore)))
	}
	if streakRes.Changed {
		result.Events = append(result.Events, h.withCorrelation(cmd,
			shared.NewStreakUpdatedEvent(acc.ID.String(), streakBefore, acc.Streak)))
	}

	return result, nil
}

// awardNewBadges evaluates the catalog against the committed state and
// persists first-time awards. The unique (account, badge) constraint in
// the award store makes the whole step idempotent under races.
func (h *ApplyCompletionHandler) awardNewBadges(
	ctx context.Context,
	cmd ApplyCompletionCommand,
	result *ApplyCompletionResult,
	occurredAt time.Time,
) {
	acc, err := h.accounts.GetByID(ctx, cmd.AccountID)
	if err != nil {
		h.log.Warn("badge evaluation skipped: account re-read failed",
			logger.AccountID(cmd.AccountID.String()), logger.Err(err))
		return
	}

	owned, err := h.awards.ListIDsByAccount(ctx, acc.ID)
	if err != nil {
		h.log.Warn("badge evaluation skipped: listing awards failed",
			logger.AccountID(acc.ID.String()), logger.Err(err))
		return
	}

	for _, def := range h.evaluator.EvaluateNewlyEarned(acc.Stats(), owned) {
		inserted, err := h.awards.Award(ctx, badge.Award{
			AccountID: acc.ID,
			BadgeID:   def.ID,
			EarnedAt:  occurredAt,
		})
		if err != nil {
			h.log.Error("badge award failed",
				logger.AccountID(acc.ID.String()),
				logger.BadgeID(def.ID.String()),
				logger.Err(err))
			continue
		}
		// Проигранная гонка за ту же выдачу - не событие.
		if !inserted {
			continue
		}

		result.NewBadges = append(result.NewBadges, def.ID)
		result.Events = append(result.Events, h.withCorrelation(cmd,
			shared.NewBadgeEarnedEvent(acc.ID.String(), def.ID.String(), occurredAt)))
	}
}

// refreshRankingCache pushes the fresh score into the ranking cache.
// Failures are logged and swallowed: the cache is rebuilt periodically
// and reads fall back to the authoritative view.
func (h *ApplyCompletionHandler) refreshRankingCache(ctx context.Context, result *ApplyCompletionResult) {
	if h.cache == nil {
		return
	}

	acc, err := h.accounts.GetByID(ctx, result.AccountID)
	if err != nil {
		return
	}

	entry := ranking.Entry{
		AccountID:   acc.ID,
		DisplayName: acc.DisplayName,
		Points:      acc.Points,
		Level:       int(acc.Level),
		Streak:      acc.Streak,
		CreatedAt:   acc.CreatedAt,
	}
	err = h.cacheTry.Do(ctx, func(ctx context.Context) error {
		return retry.Retryable(h.cache.UpsertScore(ctx, entry))
	})
	if err != nil {
		h.log.Warn("ranking cache update failed",
			logger.AccountID(acc.ID.String()), logger.Err(err))
	}
}

func (h *ApplyCompletionHandler) withCorrelation(cmd ApplyCompletionCommand, event shared.Event) shared.Event {
	if cmd.CorrelationID == "" {
		return event
	}

	switch e := event.(type) {
	case shared.PointsGainedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		return e
	case shared.LevelUpEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		return e
	case shared.StreakUpdatedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		return e
	case shared.StreakBrokenEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		return e
	case shared.BadgeEarnedEvent:
		e.BaseEvent = e.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		return e
	default:
		return event
	}
}
