// Package events publishes schedule changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// EventScheduleChanged is the envelope type of a change event.
const EventScheduleChanged = "schedule.changed"

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Envelope is the JSON value of one published message.
type Envelope struct {
	Type        string                `json:"type"`
	SnapshotID  int64                 `json:"snapshot_id"`
	SourceName  string                `json:"source_name"`
	Change      models.ScheduleChange `json:"change"`
	PublishedAt time.Time             `json:"published_at"`
}

// Publisher writes change events, keyed by group label so that changes of
// one group stay ordered within a partition.
type Publisher struct {
	writer WriterInterface
	log    logging.Logger
	now    func() time.Time
}

// NewPublisher builds a Publisher backed by a kafka.Writer.
func NewPublisher(cfg Config, log logging.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return NewPublisherWithWriter(w, log), nil
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w WriterInterface, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Publisher{writer: w, log: log, now: time.Now}
}

// PublishChanges writes one message per change in a single batch.
func (p *Publisher) PublishChanges(ctx context.Context, snapshotID int64, sourceName string, changes []models.ScheduleChange) error {
	if len(changes) == 0 {
		return nil
	}
	publishedAt := p.now().UTC()
	msgs := make([]kafka.Message, 0, len(changes))
	for _, c := range changes {
		value, err := json.Marshal(Envelope{
			Type:        EventScheduleChanged,
			SnapshotID:  snapshotID,
			SourceName:  sourceName,
			Change:      c,
			PublishedAt: publishedAt,
		})
		if err != nil {
			return fmt.Errorf("encode change event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(c.GroupLabel),
			Value: value,
			Time:  publishedAt,
			Headers: []kafka.Header{
				{Key: "change_type", Value: []byte(c.ChangeType)},
				{Key: "snapshot_id", Value: []byte(strconv.FormatInt(snapshotID, 10))},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d change events: %w", len(msgs), err)
	}
	p.log.Debug("change events published",
		logging.Int64("snapshot_id", snapshotID),
		logging.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
