package consumer

import (
	"context"
	"errors"
	"time"

	"go-botlens/pkg/config"
	"go-botlens/pkg/logger"

	"github.com/IBM/sarama"
)

type Consumer struct {
	consumer sarama.ConsumerGroup
	handler  *Handler
}

func NewConsumer(cfg *config.Config, handler *Handler) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	version, err := sarama.ParseKafkaVersion(cfg.Kafka.Version)
	if err != nil {
		return nil, err
	}
	saramaCfg.Version = version
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Group.Session.Timeout = 20 * time.Second
	saramaCfg.Consumer.Group.Heartbeat.Interval = 6 * time.Second
	saramaCfg.Net.DialTimeout = 30 * time.Second
	saramaCfg.Net.ReadTimeout = 30 * time.Second
	saramaCfg.Net.WriteTimeout = 30 * time.Second

	logger.Log.Infof("正在连接 Kafka brokers: %v", cfg.Kafka.Brokers)
	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return newConsumer(group, handler), nil
}

func newConsumer(group sarama.ConsumerGroup, handler *Handler) *Consumer {
	return &Consumer{
		consumer: group,
		handler:  handler,
	}
}

// Start 阻塞消费直到 ctx 取消
func (c *Consumer) Start(ctx context.Context, topic string) error {
	topics := []string{topic}

	go func() {
		for err := range c.consumer.Errors() {
			logger.Log.Errorf("消费组错误: %v", err)
		}
	}()

	logger.Log.Infof("开始消费 topic: %s", topic)
	for {
		if err := c.consumer.Consume(ctx, topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			logger.Log.Errorf("消费出错: %v", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		if ctx.Err() != nil {
			logger.Log.Infof("停止消费: %v", ctx.Err())
			return nil
		}
	}
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	logger.Log.Infof("消费组会话建立: member_id=%s, generation=%d", session.MemberID(), session.GenerationID())
	return nil
}

func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 处理失败也提交位点，避免坏消息卡住分区
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			logger.Log.Debugf("收到消息: topic=%s, partition=%d, offset=%d",
				message.Topic, message.Partition, message.Offset)

			if _, err := c.handler.Process(session.Context(), message.Value); err != nil {
				logger.Log.Errorf("处理消息失败: offset=%d, error=%v, raw message: %s",
					message.Offset, err, string(message.Value))
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
