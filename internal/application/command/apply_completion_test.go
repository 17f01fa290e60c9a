package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/messaging"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/memory"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
	"github.com/lingo-hub/lingo-progress-hub/pkg/retry"
)

type ledgerFixture struct {
	accounts  *memory.AccountRepository
	awards    *memory.AwardRepository
	bus       *messaging.InMemoryEventBus
	cache     *memory.RankingCache
	handler   *ApplyCompletionHandler
	accountID shared.AccountID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	accounts := memory.NewAccountRepository()
	awards := memory.NewAwardRepository()
	cache := memory.NewRankingCache()

	// Синхронная шина: тесты читают события сразу после Handle.
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode: false,
		Logger:    logger.Nop(),
	})

	evaluator, err := badge.NewEvaluator(badge.DefaultCatalog())
	require.NoError(t, err)

	handler := NewApplyCompletionHandler(accounts, awards, evaluator, bus, cache, logger.Nop())

	id, err := shared.NewAccountID(uuid.NewString())
	require.NoError(t, err)

	acc, err := account.NewAccount(account.NewAccountParams{
		ID:          id,
		DisplayName: "Aruzhan",
	})
	require.NoError(t, err)
	require.NoError(t, accounts.Create(context.Background(), acc))

	return &ledgerFixture{
		accounts:  accounts,
		awards:    awards,
		bus:       bus,
		cache:     cache,
		handler:   handler,
		accountID: id,
	}
}

func TestApplyCompletion_PointsLevelAndBadges(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	res, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    150,
	})
	require.NoError(t, err)

	assert.Equal(t, 150, res.TotalPoints)
	assert.Equal(t, 2, int(res.Level))
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 1, res.Streak)

	// 150 очков пересекают пороги first_steps (50) и centurion (100).
	require.Len(t, res.NewBadges, 2)
	assert.Equal(t, shared.BadgeID("first_steps"), res.NewBadges[0])
	assert.Equal(t, shared.BadgeID("centurion"), res.NewBadges[1])
}

func TestApplyCompletion_ResubmissionDoesNotReaward(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	first, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    150,
	})
	require.NoError(t, err)
	require.Len(t, first.NewBadges, 2)

	second, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    10,
	})
	require.NoError(t, err)

	assert.Equal(t, 160, second.TotalPoints)
	assert.Empty(t, second.NewBadges)

	awards, err := fx.awards.ListByAccount(ctx, fx.accountID)
	require.NoError(t, err)
	assert.Len(t, awards, 2)
}

func TestApplyCompletion_NegativePointsRejected(t *testing.T) {
	fx := newLedgerFixture(t)

	_, err := fx.handler.Handle(context.Background(), ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    -5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNegativePoints)

	// Состояние не изменилось.
	acc, err := fx.accounts.GetByID(context.Background(), fx.accountID)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.Points)
}

func TestApplyCompletion_UnknownAccount(t *testing.T) {
	fx := newLedgerFixture(t)

	ghost, err := shared.NewAccountID(uuid.NewString())
	require.NoError(t, err)

	_, err = fx.handler.Handle(context.Background(), ApplyCompletionCommand{
		AccountID: ghost,
		Kind:      account.CompletionUnit,
		Points:    10,
	})
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestApplyCompletion_StreakProgression(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	res, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID:  fx.accountID,
		Kind:       account.CompletionUnit,
		Points:     10,
		OccurredAt: base,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)

	// Следующее окно: серия растёт.
	res, err = fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID:  fx.accountID,
		Kind:       account.CompletionUnit,
		Points:     10,
		OccurredAt: base.Add(30 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.True(t, res.StreakChanged)

	// То же окно: серия не меняется.
	res, err = fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID:  fx.accountID,
		Kind:       account.CompletionUnit,
		Points:     10,
		OccurredAt: base.Add(40 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Streak)
	assert.False(t, res.StreakChanged)

	// Пропуск больше двух суток: сброс.
	res, err = fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID:  fx.accountID,
		Kind:       account.CompletionUnit,
		Points:     10,
		OccurredAt: base.Add(100 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.StreakBroken)
}

func TestApplyCompletion_CountersFeedBadges(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	// Первый завершённый camp выдаёт camp_survivor.
	res, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionCamp,
		Points:    20,
	})
	require.NoError(t, err)
	assert.Contains(t, res.NewBadges, shared.BadgeID("camp_survivor"))

	acc, err := fx.accounts.GetByID(ctx, fx.accountID)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.CampsCompleted)
}

func TestApplyCompletion_ConcurrentWritersSerialize(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	// Запас попыток с запасом покрывает худшее расписание из 50 писателей.
	fx.handler.WithRetrier(retry.New(
		retry.WithMaxAttempts(200),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(10*time.Millisecond),
		retry.WithJitter(0.5),
	))

	const writers = 50
	const pointsEach = 10

	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
				AccountID: fx.accountID,
				Kind:      account.CompletionUnit,
				Points:    pointsEach,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Ни одно начисление не потеряно и не задвоено.
	acc, err := fx.accounts.GetByID(ctx, fx.accountID)
	require.NoError(t, err)
	assert.Equal(t, writers*pointsEach, acc.Points)
	assert.Equal(t, writers, acc.UnitsCompleted)

	// Бейджи выданы не более одного раза каждый.
	awards, err := fx.awards.ListByAccount(ctx, fx.accountID)
	require.NoError(t, err)
	seen := make(map[shared.BadgeID]int)
	for _, a := range awards {
		seen[a.BadgeID]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "badge %s awarded %d times", id, n)
	}
}

func TestApplyCompletion_ExpiredDeadlineSurfacesTimeout(t *testing.T) {
	fx := newLedgerFixture(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    10,
	})
	require.Error(t, err)

	// Таймаут отличим от постоянных ошибок: клиент может повторить запрос.
	assert.ErrorIs(t, err, shared.ErrTimeout)
	assert.True(t, shared.IsTransient(err))
	assert.NotErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestApplyCompletion_CancelledContextSurfacesTimeout(t *testing.T) {
	fx := newLedgerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrTimeout)
}

func TestApplyCompletion_PublishesEvents(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var types []shared.EventType
	require.NoError(t, fx.bus.SubscribeAll(func(event shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, event.EventType())
		return nil
	}))

	_, err := fx.handler.Handle(ctx, ApplyCompletionCommand{
		AccountID: fx.accountID,
		Kind:      account.CompletionUnit,
		Points:    150,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, types, shared.EventPointsGained)
	assert.Contains(t, types, shared.EventLevelUp)
	assert.Contains(t, types, shared.EventStreakUpdated)
	assert.Contains(t, types, shared.EventBadgeEarned)
}
