/*
 * @module service/audit/event_publisher
 * @description 审计事件发布器，将敏感访问事件推送到Kafka供下游合规系统订阅
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的发布接口
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 事件序列化 -> 写入topic -> 失败计入合规事件
 * @rules 发布失败不能阻断检测流程，但必须留下错误日志
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs audit_service.go
 */

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// AccessEvent 推送给下游合规系统的敏感访问事件
type AccessEvent struct {
	LogID       string    `json:"log_id"`
	DatasetID   string    `json:"dataset_id"`
	DatasetName string    `json:"dataset_name"`
	Sensitivity string    `json:"sensitivity"`
	ActionType  string    `json:"action_type"`
	RecordCount int64     `json:"record_count"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	AccessedAt  time.Time `json:"accessed_at"`
}

// EventPublisher 审计事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event *AccessEvent) error
	Close() error
}

// KafkaEventPublisher 基于Kafka的审计事件发布器
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher 创建Kafka审计事件发布器
func NewKafkaEventPublisher(brokers []string, topic string) *KafkaEventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &KafkaEventPublisher{writer: writer}
}

// Publish 发布敏感访问事件
func (p *KafkaEventPublisher) Publish(ctx context.Context, event *AccessEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化审计事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.DatasetID),
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("sensitive_access")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("写入Kafka失败: %w", err)
	}
	return nil
}

// Close 关闭底层生产者
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
