package sink

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

type KafkaConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	SecurityProtocol string // PLAINTEXT, SASL_PLAINTEXT, SASL_SSL
	SASLMechanism    string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	SASLUsername     string
	SASLPassword     string
}

// KafkaSink streams plant events to a topic as JSON CloudEvents, keyed by worker
// so one worker's events stay ordered within a partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func NewKafkaProducer(cfg KafkaConfig) (sarama.SyncProducer, error) {
	saramaConfig, err := newSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return producer, nil
}

func (k *KafkaSink) LogEvent(_ context.Context, ev domain.Event) error {
	ce, err := ToCloudEvent(ev)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("marshal cloudevent: %w", err)
	}

	key := ev.RunID
	if ev.HasWorker() {
		key = ev.Worker.String()
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_specversion"), Value: []byte(ce.SpecVersion())},
			{Key: []byte("ce_type"), Value: []byte(ce.Type())},
			{Key: []byte("ce_source"), Value: []byte(ce.Source())},
			{Key: []byte("ce_id"), Value: []byte(ce.ID())},
		},
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

func newSaramaConfig(cfg KafkaConfig) (*sarama.Config, error) {
	c := sarama.NewConfig()
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.RequiredAcks = sarama.WaitForAll
	if cfg.ClientID != "" {
		c.ClientID = cfg.ClientID
	}

	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		return c, nil
	case "SASL_SSL":
		c.Net.TLS.Enable = true
	case "SASL_PLAINTEXT":
	default:
		return nil, fmt.Errorf("unsupported security protocol: %s", cfg.SecurityProtocol)
	}

	c.Net.SASL.Enable = true
	c.Net.SASL.User = cfg.SASLUsername
	c.Net.SASL.Password = cfg.SASLPassword
	switch cfg.SASLMechanism {
	case "PLAIN":
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	case "SCRAM-SHA-256":
		c.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		c.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &XDGSCRAMClient{HashGeneratorFcn: SHA256}
		}
	case "SCRAM-SHA-512":
		c.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		c.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &XDGSCRAMClient{HashGeneratorFcn: SHA512}
		}
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
	return c, nil
}
