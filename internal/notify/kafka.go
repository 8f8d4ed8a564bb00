package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
)

// KafkaNotifier publishes PasswordReset events keyed by email.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	producer, err := sarama.NewSyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, err
	}

	logger.Info("kafka notifier initialized", "brokers", brokers, "topic", topic)

	return NewKafkaNotifierWithProducer(producer, topic, logger), nil
}

// NewKafkaNotifierWithProducer wraps an existing producer (useful for testing).
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func ProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

func (n *KafkaNotifier) NotifyPasswordReset(ctx context.Context, reset PasswordReset) error {
	payload, err := json.Marshal(reset)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to marshal password reset event", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(reset.Email),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to send password reset event to kafka", "error", err)
		return err
	}

	n.logger.InfoContext(ctx, "password reset event sent to kafka",
		"topic", n.topic,
		"partition", partition,
		"offset", offset,
		"user_id", reset.UserID,
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
