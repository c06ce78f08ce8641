package plugin

import (
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/model"
	slog "github.com/vearne/simplelog"
)

// KafkaOutputConfig is the representation of kafka output configuration
type KafkaOutputConfig struct {
	Brokers []string
	Topic   string
}

// KafkaOutput mirrors every log line to a topic, keyed by the correlation header line.
type KafkaOutput struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaOutput(config *KafkaOutputConfig) (*KafkaOutput, error) {
	c := sarama.NewConfig()
	c.Producer.RequiredAcks = sarama.WaitForLocal
	c.Producer.Retry.Max = 3
	c.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(config.Brokers, c)
	if err != nil {
		return nil, errors.Wrapf(err, "kafka producer, brokers:%v", config.Brokers)
	}
	slog.Info("NewKafkaOutput, brokers:%v, topic:%v", config.Brokers, config.Topic)
	return newKafkaOutputWithProducer(producer, config.Topic), nil
}

func newKafkaOutputWithProducer(producer sarama.SyncProducer, topic string) *KafkaOutput {
	return &KafkaOutput{producer: producer, topic: topic}
}

func (o *KafkaOutput) Write(p *model.Packet) error {
	line := p.AppendLine(nil)
	msg := &sarama.ProducerMessage{
		Topic: o.topic,
		Value: sarama.ByteEncoder(line[:len(line)-1]),
	}
	if p.LinkedKey != "" {
		msg.Key = sarama.StringEncoder(p.LinkedKey)
	}

	partition, offset, err := o.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "kafka send, topic:%v", o.topic)
	}
	slog.Debug("KafkaOutput-SendMessage, partition:%v, offset:%v", partition, offset)
	return nil
}

func (o *KafkaOutput) Close() error {
	return o.producer.Close()
}

func (o *KafkaOutput) String() string {
	return "Kafka output: " + o.topic
}
