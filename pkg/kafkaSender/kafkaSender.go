package kafkaSender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/internal/journal"
)

const (
	defaultPeriod    = 2 * time.Second
	eventTypeHeader  = "event_type"
	defaultBatchSize = 100
)

type Config struct {
	Brokers   []string `json:"brokers" env:"STOREFRONT_KAFKA_BROKERS"`
	Topic     string   `json:"topic" env:"STOREFRONT_KAFKA_TOPIC"`
	PeriodMS  int      `json:"period_ms" env:"STOREFRONT_KAFKA_PERIOD_MS"`
	BatchSize int      `json:"batch_size" env:"STOREFRONT_KAFKA_BATCH_SIZE"`
}

func (c Config) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

func (c Config) period() time.Duration {
	if c.PeriodMS <= 0 {
		return defaultPeriod
	}
	return time.Duration(c.PeriodMS) * time.Millisecond
}

// Source hands out batches of pending events; it is satisfied by
// *journal.Journal.
type Source interface {
	Dispatch(ctx context.Context, limit int, publish journal.PublishFunc) (int, error)
}

// Sender relays cart events from the journal to Kafka. Messages are keyed
// by store so the events of one store stay ordered within a partition.
type Sender struct {
	src      Source
	producer sarama.SyncProducer
	cfg      Config
	logger   *zap.Logger

	stopCh chan struct{}
	done   chan struct{}
}

func NewSender(src Source, producer sarama.SyncProducer, cfg Config, logger *zap.Logger) *Sender {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		src:      src,
		producer: producer,
		cfg:      cfg,
		logger:   logger,
	}
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return producer, nil
}

func (s *Sender) Start(ctx context.Context) error {
	if s.stopCh != nil {
		return errors.New("sender is already running")
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	ticker := time.NewTicker(s.cfg.period())

	go func() {
		defer close(s.done)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				s.logger.Info("stopping cart event relay")
				return
			case <-ticker.C:
			}

			if _, err := s.Flush(context.Background()); err != nil {
				s.logger.Warn("failed to relay cart events", zap.Error(err))
			}
		}
	}()

	s.logger.Info("cart event relay started", zap.String("topic", s.cfg.Topic), zap.Duration("period", s.cfg.period()))

	return nil
}

func (s *Sender) Stop(ctx context.Context) error {
	if s.stopCh == nil {
		return errors.New("sender is not running")
	}
	close(s.stopCh)

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.producer.Close()
}

// Flush relays one batch and returns how many events were published.
func (s *Sender) Flush(ctx context.Context) (int, error) {
	return s.src.Dispatch(ctx, s.cfg.BatchSize, s.sendKafkaMessages)
}

func (s *Sender) sendKafkaMessages(ctx context.Context, events []journal.Event) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
		}

		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.cfg.Topic,
			Key:   sarama.StringEncoder(event.StoreID),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte(eventTypeHeader), Value: []byte(event.Type)},
			},
		})
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to send kafka messages: %w", err)
	}

	s.logger.Debug("cart events sent to kafka", zap.Int("count", len(msgs)), zap.String("topic", s.cfg.Topic))

	return nil
}
