package events

import (
	"context"       // Send deadlines
	"encoding/json" // Event encoding
	"errors"        // Sentinels
	"fmt"           // Error wrapping
	"sync"          // Sender lifetime
	"time"          // Batch and send timeouts

	"github.com/segmentio/kafka-go" // Kafka producer
	"github.com/sirupsen/logrus"    // Structured logging
)

// ErrBufferFull is returned when the sender is behind and the event is dropped.
var ErrBufferFull = errors.New("event buffer full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event publisher closed")

const (
	defaultBuffer      = 1024
	defaultSendTimeout = 10 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to "<prefix><event type>", keyed by the
// campaign id so all events of one campaign land on one partition.
// Publish only enqueues; a background sender talks to the brokers.
type KafkaPublisher struct {
	writer      messageWriter
	prefix      string
	log         logrus.FieldLogger
	sendTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	pending chan kafka.Message
	done    chan struct{}
}

func NewKafkaPublisher(brokers []string, topicPrefix string, log logrus.FieldLogger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
	}, topicPrefix, defaultBuffer, log), nil
}

func newKafkaPublisher(w messageWriter, prefix string, buffer int, log logrus.FieldLogger) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:      w,
		prefix:      prefix,
		log:         log,
		sendTimeout: defaultSendTimeout,
		pending:     make(chan kafka.Message, buffer),
		done:        make(chan struct{}),
	}
	go p.send()
	return p
}

// Publish encodes the event and queues it without waiting for the brokers.
func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	msg := kafka.Message{
		Topic: p.prefix + event.Type,
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.OccurredAt,
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.pending <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrBufferFull, event.Type)
	}
}

func (p *KafkaPublisher) send() {
	defer close(p.done)
	for msg := range p.pending {
		ctx, cancel := context.WithTimeout(context.Background(), p.sendTimeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"topic": msg.Topic,
				"key":   string(msg.Key),
				"error": err.Error(),
			}).Warn("Event delivery failed")
		}
	}
}

// Close stops accepting events, drains the queue and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.pending)
	p.mu.Unlock()
	<-p.done
	return p.writer.Close()
}
