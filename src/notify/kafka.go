package notify

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/config"
	"github.com/rentease/rentledger/src/models"
)

// KafkaNotifier publishes notification events to a Kafka topic through an
// async producer. Delivery is fire-and-forget: produce errors are logged
// and counted, never propagated to the ledger write path.
type KafkaNotifier struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
	done     chan struct{}
}

// NewKafkaNotifier creates a Kafka-backed notification sink.
func NewKafkaNotifier(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaNotifier, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = requiredAcks(cfg.RequiredAcks)
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.Flush.Frequency = cfg.FlushFreq
	saramaCfg.Producer.Retry.Max = cfg.RetryMax
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	n := &KafkaNotifier{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go n.drainErrors()
	return n, nil
}

// Publish implements the services.Notifier contract. Events are keyed by
// tenant so per-tenant ordering survives partitioning.
func (n *KafkaNotifier) Publish(ctx context.Context, event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("marshal notification event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(event.TenantID.String()),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case n.producer.Input() <- msg:
	case <-ctx.Done():
		n.logger.Warn("notification dropped, context cancelled",
			zap.String("type", string(event.Type)))
	}
}

func (n *KafkaNotifier) drainErrors() {
	defer close(n.done)
	for err := range n.producer.Errors() {
		n.logger.Error("notification publish failed",
			zap.String("topic", err.Msg.Topic),
			zap.Error(err.Err),
		)
	}
}

// Close flushes outstanding messages and shuts the producer down.
func (n *KafkaNotifier) Close() error {
	err := n.producer.Close()
	<-n.done
	return err
}

func requiredAcks(mode string) sarama.RequiredAcks {
	switch mode {
	case "all":
		return sarama.WaitForAll
	case "none":
		return sarama.NoResponse
	default:
		return sarama.WaitForLocal
	}
}
