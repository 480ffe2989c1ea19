package app

// Broadcaster 發布 ephemeral update 的出口，由 RedisPubSub 實作
// tracker 只依賴這個窄介面，避免和 transport 層互相依賴
type Broadcaster interface {
	Publish(channel string, message interface{}) error
}
