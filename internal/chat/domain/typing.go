package domain

import "time"

// TypingUser 表示正在輸入的 user，StartTime 用於過期判斷
type TypingUser struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	StartTime time.Time `json:"start_time"`
}

// TypingUpdateMessage broadcast payload，永遠帶完整 typing set 不是 delta
type TypingUpdateMessage struct {
	ConversationID string       `json:"conversation_id"`
	TypingUsers    []TypingUser `json:"typing_users"`
}
