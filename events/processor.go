// Package events turns domain events published by request handlers into
// stored notifications, off the request path.
package events

import (
	"context"
	"fmt"
	"sync"

	"agora/config"
	"agora/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_events_processed_total",
		Help: "Events processed by the notification workers, by result",
	}, []string{"result"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_events_dropped_total",
		Help: "Events dropped because the queue was full",
	})

	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_notifications_created_total",
		Help: "Notifications created, by type",
	}, []string{"type"})
)

// Store is the part of the database the processor needs
type Store interface {
	GetPost(ctx context.Context, id string) (models.Post, error)
	GetUsersByHandles(ctx context.Context, handles []string) ([]models.User, error)
	CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error)
}

// Notifier delivers stored notifications to connected clients
type Notifier interface {
	Notify(userID string, notification models.Notification)
}

// Processor runs a fixed pool of workers over a bounded event queue
type Processor struct {
	maxWorkers int
	queue      chan models.Event
	store      Store
	notifier   Notifier
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	startOnce  sync.Once
}

func NewProcessor(ctx context.Context, cfg config.TomlEvents, store Store, notifier Notifier) *Processor {
	ctx, cancel := context.WithCancel(ctx)
	return &Processor{
		maxWorkers: cfg.Workers,
		queue:      make(chan models.Event, cfg.QueueSize),
		store:      store,
		notifier:   notifier,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the workers. Calling it again has no effect.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Stop cancels the workers and waits for them. Events still queued are
// dropped.
func (p *Processor) Stop() {
	p.cancel()
	p.wg.Wait()
	if pending := len(p.queue); pending > 0 {
		log.WithField("pending", pending).Warn("Dropped queued events on shutdown")
	}
}

// Publish queues an event without blocking and reports whether it was
// accepted.
func (p *Processor) Publish(event models.Event) bool {
	select {
	case p.queue <- event:
		return true
	default:
		eventsDropped.Inc()
		log.WithField("event", fmt.Sprintf("%T", event)).Warn("Event queue full, dropping event")
		return false
	}
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Debugf("Worker %d: Shutting down", id)
			return
		case event := <-p.queue:
			if err := p.handle(p.ctx, event); err != nil {
				eventsProcessed.WithLabelValues("error").Inc()
				log.WithFields(log.Fields{
					"worker": id,
					"event":  fmt.Sprintf("%T", event),
					"error":  err,
				}).Error("Error processing event")
				continue
			}
			eventsProcessed.WithLabelValues("ok").Inc()
		}
	}
}

// handle stores and delivers the notifications an event produces
func (p *Processor) handle(ctx context.Context, event models.Event) error {
	notifications, err := p.notificationsFor(ctx, event)
	if err != nil {
		return err
	}

	for _, n := range notifications {
		stored, err := p.store.CreateNotification(ctx, n)
		if err != nil {
			return fmt.Errorf("create %s notification: %w", n.Type, err)
		}
		notificationsCreated.WithLabelValues(string(stored.Type)).Inc()
		if p.notifier != nil {
			p.notifier.Notify(stored.UserId, stored)
		}
	}
	return nil
}
