package kafka

import (
	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string, topic string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "opsboard"
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// EventPublisher pushes parsed build events onto the analytics topic. The
// feed multiplexer treats publish failures as log-and-continue.
type EventPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventPublisher(producer sarama.SyncProducer, topic string) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *EventPublisher) PublishBuildEvent(payload []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}
