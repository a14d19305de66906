package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypeDonationRecorded is published after a donation is stored.
const TypeDonationRecorded = "donation.recorded"

// DefaultKey is the redis list shared by the API and the worker.
const DefaultKey = "candrive:events"

// Message is one typed event with a JSON body.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// DonationRecorded is the body of a TypeDonationRecorded message.
type DonationRecorded struct {
	EventID    string    `json:"event_id"`
	DonationID string    `json:"donation_id"`
	DonorKind  string    `json:"donor_kind"`
	DonorID    string    `json:"donor_id"`
	Amount     int64     `json:"amount"`
	At         time.Time `json:"at"`
}

// NewMessage marshals body into a typed message.
func NewMessage(typ string, body any) (Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Body: raw}, nil
}

// Queue carries donation events from the API to the milestone consumer.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// ErrFull is returned when the in-memory queue cannot take more messages.
var ErrFull = errors.New("queue full")

// InMemory keeps messages in a bounded channel inside the current process.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a queue holding at most size undelivered messages.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message without blocking the caller.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

// Consume delivers buffered messages until ctx is done.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue shares messages between processes through a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue uses the list at key; an empty key means DefaultKey.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message as JSON.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume pops entries with BRPOP and decodes them; undecodable entries are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					slog.Warn("queue pop failed", "key", q.key, "error", err)
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				slog.Warn("dropping malformed queue message", "key", q.key, "error", err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
