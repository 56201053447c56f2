package index

import (
	"context"

	"github.com/wyfcoding/datacollector/pkg/mq"
)

// Sender 消息发送端，由 mq.Producer 实现
type Sender interface {
	Send(ctx context.Context, messages ...mq.Message) error
}

// PublishNewCompanies 把成分股历史逐条发布给下游，key 为指数代码
func PublishNewCompanies(ctx context.Context, idx Index, s Sender) (int, error) {
	rows, err := idx.NewCompanies(ctx)
	if err != nil {
		return 0, err
	}
	messages := make([]mq.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, mq.Message{Key: r.Gvkeyx, Value: r})
	}
	if err := s.Send(ctx, messages...); err != nil {
		return 0, err
	}
	return len(messages), nil
}
