package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_server/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// RedisPubSub definition redis pub/sub，presence/typing/status 的 broadcast 出口
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後把 raw payload 交給 handler 處理
// payload 格式依 channel 而異（presence/typing/status update），由呼叫端決定怎麼包
func (r *RedisPubSub) Subscribe(ctx context.Context, channels []string, handler func(channel string, payload []byte)) error {
	sub := r.client.Subscribe(r.ctx, channels...)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				handler(m.Channel, []byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%v , sub close", channels))
				// 當 ctx 被取消時，退出循環並關閉訂閱
				sub.Close()
				return
			}
		}
	}()
	return nil
}
