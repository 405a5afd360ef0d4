package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"airdrop-campaign/models"
	"airdrop-campaign/utils"

	kafka "github.com/segmentio/kafka-go"
)

// EventType names a ledger change.
type EventType string

const (
	EventProgressUpdated EventType = "progress.updated"
	EventTaskCompleted   EventType = "task.completed"
	EventSpinResolved    EventType = "spin.resolved"
	EventProgressReset   EventType = "progress.reset"
	EventSpinnerReady    EventType = "spinner.ready"
)

// Event is delivered to session subscribers and publishers after every
// state change.
type Event struct {
	Type     EventType           `json:"type"`
	Wallet   string              `json:"wallet"`
	TaskID   string              `json:"taskId,omitempty"`
	Spin     *models.SpinOutcome `json:"spin,omitempty"`
	Progress models.Progress     `json:"progress"`
	At       time.Time           `json:"at"`
}

// EventPublisher forwards events outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

const publishQueueSize = 256

// publishQueue feeds one publisher from a single goroutine so events reach
// it in the order they were emitted. Enqueue never blocks.
type publishQueue struct {
	pub  EventPublisher
	ch   chan Event
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newPublishQueue(pub EventPublisher, size int) *publishQueue {
	q := &publishQueue{
		pub:  pub,
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *publishQueue) run() {
	defer close(q.done)
	for ev := range q.ch {
		if err := q.pub.Publish(context.Background(), ev); err != nil {
			utils.LogWarn("[EVENTS] failed to publish %s for %s: %v", ev.Type, ev.Wallet, err)
		}
	}
}

// enqueue reports false when the queue is full or closed.
func (q *publishQueue) enqueue(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- ev:
		return true
	default:
		return false
	}
}

// close stops accepting events and waits for the queued ones to be published.
func (q *publishQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}

// KafkaPublisher writes events as JSON, keyed by wallet so a wallet's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokersCSV, topic string) (*KafkaPublisher, error) {
	brokers := splitCSV(brokersCSV)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, timeout: 3 * time.Second}, nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, kafka.Message{
		Key:   []byte(ev.Wallet),
		Value: b,
		Time:  ev.At,
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
