// Package cache implements the shared cache: a one-owner-per-UUID election
// protocol over a key-value store with change events, coordinating multiple
// runtime instances (simulating browser tabs/frames) and, within a single
// instance, multiple cell mirrors of the same UUID.
package cache

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// StoreEvent reports a change to a key in the shared store, originating from
// any instance (including, for simplicity, the local one).
type StoreEvent struct {
	Key     string
	Value   string
	Deleted bool
}

// Store is the shared key-value store with change events that backs the
// cache's storage keys (value.<uuid>, owner.<uuid>).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context) (<-chan StoreEvent, error)
}

// topic is the single watermill topic every instance publishes storage
// mutations to and subscribes on for change events; gochannel fans a message
// out to every current subscriber, modelling a real cross-tab storage event
// without a real broker.
const topic = "shared-cache-store"

// MemoryStore is an in-process Store, sharable across multiple cache
// instances in the same process to simulate independent tabs/frames talking
// to a common backend.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string

	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewMemoryStore returns a Store backed by an in-memory map and a watermill
// gochannel pub/sub bus for change notification.
func NewMemoryStore(logger watermill.LoggerAdapter) *MemoryStore {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &MemoryStore{
		values: make(map[string]string),
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          false,
		}, logger),
		logger: logger,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return s.publish(ctx, StoreEvent{Key: key, Value: value})
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return s.publish(ctx, StoreEvent{Key: key, Deleted: true})
}

func (s *MemoryStore) publish(ctx context.Context, ev StoreEvent) error {
	payload, err := encodeStoreEvent(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return s.pubsub.Publish(topic, msg)
}

func (s *MemoryStore) Watch(ctx context.Context) (<-chan StoreEvent, error) {
	msgs, err := s.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan StoreEvent, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeStoreEvent(msg.Payload)
				msg.Ack()
				if err != nil {
					s.logger.Error("failed to decode store event", err, nil)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
