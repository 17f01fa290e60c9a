// Package messaging implements the event bus of the progress engine.
// It provides an in-memory bus for single-instance deployments and tests,
// and a Redis Pub/Sub bus for distributed deployments.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

// ErrEventBusClosed возвращается при операции над закрытой шиной.
var ErrEventBusClosed = errors.New("event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus - простая шина событий в памяти.
// Подходит для одноэкземплярного деплоя и тестов.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	log         *logger.Logger
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig содержит настройки InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode включает асинхронную обработку событий.
	AsyncMode bool

	// WorkerPoolSize - число одновременных воркеров в async-режиме.
	WorkerPoolSize int

	// Logger для структурированных логов.
	Logger *logger.Logger
}

// DefaultInMemoryEventBusConfig возвращает разумные значения по умолчанию.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus создаёт шину событий в памяти.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	return &InMemoryEventBus{
		handlers:    make(map[shared.EventType][]shared.EventHandler),
		allHandlers: make([]shared.EventHandler, 0),
		asyncMode:   config.AsyncMode,
		workerPool:  make(chan struct{}, config.WorkerPoolSize),
		log:         config.Logger.With(logger.Component("eventbus")),
		closeCh:     make(chan struct{}),
	}
}

// Subscribe регистрирует обработчик для конкретного типа события.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll регистрирует обработчик для всех событий.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish рассылает событие всем подписанным обработчикам.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}

	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	if b.asyncMode {
		for _, handler := range handlers {
			b.executeAsync(event, handler)
		}
		return nil
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.log.Error("handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Err(err))
		}
	}
	return nil
}

// executeAsync выполняет обработчик через пул воркеров.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		start := time.Now()
		if err := handler(event); err != nil {
			b.log.Error("async handler error",
				logger.String("event_type", string(event.EventType())),
				logger.Latency(time.Since(start)),
				logger.Err(err))
		}
	}()
}

// Close останавливает шину, дождавшись висящих обработчиков.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus - шина на Redis Pub/Sub для распределённого деплоя.
// Локальные подписчики получают события через вложенную in-memory шину;
// свои же сообщения из Redis отфильтровываются по instanceID.
type RedisEventBus struct {
	client      *redis.Client
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	log         *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// RedisEventBusConfig содержит настройки RedisEventBus.
type RedisEventBusConfig struct {
	// Client - подключённый клиент Redis.
	Client *redis.Client

	// ChannelName - канал для событий (default: "lingo-hub:events").
	ChannelName string

	// Logger для структурированных логов.
	Logger *logger.Logger

	// LocalBusConfig - настройки вложенной локальной шины.
	LocalBusConfig InMemoryEventBusConfig
}

// NewRedisEventBus создаёт шину на Redis Pub/Sub и запускает приём.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "lingo-hub:events"
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	config.LocalBusConfig.Logger = config.Logger

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:      config.Client,
		localBus:    NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  uuid.NewString(),
		log:         config.Logger.With(logger.Component("redis_eventbus")),
		ctx:         ctx,
		cancel:      cancel,
	}

	bus.wg.Add(1)
	go bus.receiveLoop()

	return bus, nil
}

// wireEnvelope - формат сообщения в канале Redis.
type wireEnvelope struct {
	InstanceID string                 `json:"instance_id"`
	Type       shared.EventType       `json:"type"`
	Aggregate  string                 `json:"aggregate_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// payloadCarrier реализует shared.Event для событий, принятых из Redis.
type payloadCarrier struct {
	envelope wireEnvelope
}

func (c payloadCarrier) EventType() shared.EventType     { return c.envelope.Type }
func (c payloadCarrier) OccurredAt() time.Time           { return c.envelope.OccurredAt }
func (c payloadCarrier) AggregateID() string             { return c.envelope.Aggregate }
func (c payloadCarrier) Payload() map[string]interface{} { return c.envelope.Payload }

// Publish доставляет событие локальным подписчикам и публикует его в Redis.
func (b *RedisEventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	if err := b.localBus.Publish(event); err != nil {
		return err
	}

	env := wireEnvelope{
		InstanceID: b.instanceID,
		Type:       event.EventType(),
		Aggregate:  event.AggregateID(),
		OccurredAt: event.OccurredAt(),
	}
	if p, ok := event.(interface{ Payload() map[string]interface{} }); ok {
		env.Payload = p.Payload()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	// Доставка в Redis best-effort: локальные подписчики уже получили событие.
	if err := b.client.Publish(b.ctx, b.channelName, data).Err(); err != nil {
		b.log.Warn("redis publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err))
	}
	return nil
}

// Subscribe регистрирует обработчик для конкретного типа события.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll регистрирует обработчик для всех событий.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// receiveLoop читает канал Redis и вбрасывает чужие события в локальную шину.
func (b *RedisEventBus) receiveLoop() {
	defer b.wg.Done()

	sub := b.client.Subscribe(b.ctx, b.channelName)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env wireEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("malformed event on redis channel", logger.Err(err))
				continue
			}
			// Свои события уже доставлены локально.
			if env.InstanceID == b.instanceID {
				continue
			}

			if err := b.localBus.Publish(payloadCarrier{envelope: env}); err != nil {
				b.log.Warn("local redelivery failed", logger.Err(err))
			}
		}
	}
}

// Close останавливает приём и закрывает локальную шину.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.localBus.Close()
}
