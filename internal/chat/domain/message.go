package domain

import "time"

// MessageStatus aggregate status of a message for its sender
type MessageStatus string

const (
	// StatusSent no recipient has acked yet
	StatusSent MessageStatus = "SENT"
	// StatusDelivered at least one recipient received it
	StatusDelivered MessageStatus = "DELIVERED"
	// StatusRead at least one recipient read it
	StatusRead MessageStatus = "READ"
)

// Message 一則持久化訊息，delivered/read 欄位由 receipt 流程以 atomic update 維護
// 小群組用 ids set，大群組(>20)改用 counter 以控制 document 大小
type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversation_id" json:"conversation_id"`
	FromUserID     string     `bson:"from_user_id" json:"from_user_id"`
	Content        string     `bson:"content" json:"content"`
	SentAt         time.Time  `bson:"sent_at" json:"sent_at"`
	DeliveredIds   []string   `bson:"delivered_ids,omitempty" json:"delivered_ids,omitempty"`
	DeliveredCount int        `bson:"delivered_count" json:"delivered_count"`
	DeliveredAt    *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	ReadIds        []string   `bson:"read_ids,omitempty" json:"read_ids,omitempty"`
	ReadCount      int        `bson:"read_count" json:"read_count"`
	ReadAt         *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	LastReadAt     *time.Time `bson:"last_read_at,omitempty" json:"last_read_at,omitempty"`
}

// Conversation 聊天室，Members 人數決定 receipt 記帳策略
type Conversation struct {
	ID      string   `bson:"_id" json:"id"`
	Name    string   `bson:"name" json:"name"`
	Members []string `bson:"members" json:"members"`
}

// User chat user，FullName 用於 typing 顯示
type User struct {
	ID       string `bson:"_id" json:"id"`
	FullName string `bson:"full_name" json:"full_name"`
}

// MessageDeliveryInfo aggregate counts shown to the sender
type MessageDeliveryInfo struct {
	TotalMembers   int        `json:"total_members"`
	DeliveredCount int        `json:"delivered_count"`
	ReadCount      int        `json:"read_count"`
	IsGroupChat    bool       `json:"is_group_chat"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
}

// MessageStatusUpdate broadcast payload to the sender's private queue
type MessageStatusUpdate struct {
	MessageID    string              `json:"message_id"`
	Status       MessageStatus       `json:"status"`
	DeliveryInfo MessageDeliveryInfo `json:"delivery_info"`
	Timestamp    time.Time           `json:"timestamp"`
}
