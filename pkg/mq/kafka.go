// Package mq 提供 Kafka producer 封装，采集结果以 JSON 消息发布给下游
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/datacollector/pkg/logger"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff int
}

// MessageWriter kafka.Writer 的最小接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka 生产者
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "Kafka producer created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewProducerWithWriter(writer, cfg.Topic)
}

// NewProducerWithWriter 使用自定义 writer 创建生产者
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Message 待发送的消息
type Message struct {
	Key   string
	Value any
}

// Send 批量发送消息，值编码为 JSON
func (p *Producer) Send(ctx context.Context, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	batch := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal message %s: %w", m.Key, err)
		}
		batch = append(batch, kafka.Message{Key: []byte(m.Key), Value: data})
	}

	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		logger.Error(ctx, "Failed to send Kafka messages", "topic", p.topic, "count", len(batch), "error", err)
		return err
	}

	logger.Debug(ctx, "Kafka messages sent", "topic", p.topic, "count", len(batch))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}
