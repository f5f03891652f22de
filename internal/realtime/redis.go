package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/config"
	"github.com/maxaizer/recruit-pipeline/internal/domain/events"
	"github.com/maxaizer/recruit-pipeline/internal/logger"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"strings"
	"time"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Channel returns the redis channel carrying the live events of a viewer.
func Channel(prefix, viewerEmail string) string {
	return prefix + ":" + strings.ToLower(viewerEmail)
}

type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) PublishProposal(ctx context.Context, recipients []string, event events.ProposalChanged) error {
	return p.publish(ctx, events.KindProposalChanged, recipients, event)
}

func (p *RedisPublisher) PublishMessage(ctx context.Context, recipients []string, event events.MessageReceived) error {
	return p.publish(ctx, events.KindMessageReceived, recipients, event)
}

func (p *RedisPublisher) publish(ctx context.Context, kind events.Kind, recipients []string, payload any) error {
	var failed []error
	for _, viewer := range recipients {
		envelope, err := newEnvelope(kind, viewer, payload)
		if err != nil {
			return err
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			return errors.Wrapf(err, "failed to encode envelope for %s", viewer)
		}
		if err = p.client.Publish(ctx, Channel(p.prefix, viewer), body).Err(); err != nil {
			failed = append(failed, errors.Wrapf(err, "failed to publish %s for %s", kind, viewer))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d live publishes failed: %v", len(failed), len(recipients), failed)
	}
	return nil
}

// RedisSubscriber forwards the redis channel of one viewer onto the in-process hub.
type RedisSubscriber struct {
	client *redis.Client
	hub    *Hub
	prefix string
	viewer string
}

func NewRedisSubscriber(client *redis.Client, hub *Hub, prefix, viewerEmail string) *RedisSubscriber {
	return &RedisSubscriber{client: client, hub: hub, prefix: prefix, viewer: strings.ToLower(viewerEmail)}
}

// Run blocks until ctx is done. The client resubscribes on its own after a dropped connection; every
// subscription confirmation after the first one is reported as a reconnect so the session can resync.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	_, _, err := lo.AttemptWithDelay(5, time.Second, func(attempt int, _ time.Duration) error {
		if err := s.client.Ping(ctx).Err(); err != nil {
			log.Warnf("redis ping attempt %d failed: %v", attempt+1, err)
			return err
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis unreachable")
	}

	channel := Channel(s.prefix, s.viewer)
	pubsub := s.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Infof("listening for live updates on %s", channel)

	subscribed := false
	messages := pubsub.ChannelWithSubscriptions(redis.WithChannelSize(100))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			switch m := msg.(type) {
			case *redis.Subscription:
				if m.Kind != "subscribe" {
					continue
				}
				if subscribed {
					log.Warnf("live channel %s reconnected", channel)
					s.hub.PublishReconnected(s.viewer)
				}
				subscribed = true
			case *redis.Message:
				s.dispatch(m.Payload)
			}
		}
	}
}

func (s *RedisSubscriber) dispatch(payload string) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).Errorf("skipping malformed live envelope: %v", err)
		return
	}
	envelope.Viewer = s.viewer
	if err := s.hub.Dispatch(envelope); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeRealtime).Errorf("skipping live envelope: %v", err)
	}
}
