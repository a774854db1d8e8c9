package config

import (
	"os"
	"time"

	"github.com/segmentio/kafka-go"
)

// amqpURL prefers RABBITMQ_URL and falls back to AMQP_URL.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// NewKafkaWriter returns a writer for topic, or nil when no broker is
// configured. Messages with the same key land on the same partition.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	if broker == "" || topic == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
}
