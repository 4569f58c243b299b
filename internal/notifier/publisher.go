package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
)

// DefaultChannel is the Redis pub/sub channel move events travel on
const DefaultChannel = "ttt:events:move"

// ErrDropped is returned when the local hub could not accept an event
var ErrDropped = errors.New("notifier backlog full, event dropped")

// Publisher delivers accepted moves to observers
type Publisher interface {
	Publish(ctx context.Context, event model.MoveEvent) error
}

// HubPublisher broadcasts directly into an in-process hub
type HubPublisher struct {
	hub     *Hub
	metrics *observability.Metrics
}

// NewHubPublisher creates a publisher for a single-instance deployment
func NewHubPublisher(hub *Hub, metrics *observability.Metrics) *HubPublisher {
	return &HubPublisher{hub: hub, metrics: metrics}
}

func (p *HubPublisher) Publish(ctx context.Context, event model.MoveEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.NotificationsTotal.WithLabelValues("hub", "error").Inc()
		return err
	}
	if !p.hub.Broadcast(Message{Event: model.EventMove, Data: data}) {
		p.metrics.NotificationsTotal.WithLabelValues("hub", "dropped").Inc()
		return ErrDropped
	}
	p.metrics.NotificationsTotal.WithLabelValues("hub", "ok").Inc()
	return nil
}

// RedisPublisher publishes events on a Redis channel so every server instance
// running a Relay delivers them to its own observers
type RedisPublisher struct {
	client  *redis.Client
	channel string
	metrics *observability.Metrics
}

// NewRedisPublisher creates a publisher on channel
func NewRedisPublisher(client *redis.Client, channel string, metrics *observability.Metrics) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, metrics: metrics}
}

func (p *RedisPublisher) Publish(ctx context.Context, event model.MoveEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.NotificationsTotal.WithLabelValues("redis", "error").Inc()
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.metrics.NotificationsTotal.WithLabelValues("redis", "error").Inc()
		return err
	}
	p.metrics.NotificationsTotal.WithLabelValues("redis", "ok").Inc()
	return nil
}

// Relay subscribes to the Redis channel and rebroadcasts every payload into the
// local hub
type Relay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRelay creates a relay from channel into hub
func NewRelay(client *redis.Client, channel string, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger.With(slog.String("component", "notifier-relay")),
	}
}

// Start subscribes and waits for the subscription to be confirmed, then relays
// in the background until Close
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	r.pubsub = pubsub
	r.done = make(chan struct{})
	go r.run(pubsub.Channel())

	r.logger.Info("relay subscribed", slog.String("channel", r.channel))
	return nil
}

func (r *Relay) run(ch <-chan *redis.Message) {
	defer close(r.done)
	for msg := range ch {
		if !r.hub.Broadcast(Message{Event: model.EventMove, Data: []byte(msg.Payload)}) {
			r.logger.Warn("relay dropped event", slog.String("channel", msg.Channel))
		}
	}
}

// Close unsubscribes and waits for the relay goroutine to exit
func (r *Relay) Close() error {
	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	<-r.done
	return err
}
