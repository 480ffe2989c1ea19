package domain

// Action websocket request action
type Action string

const (
	// Typing websocket action typing
	Typing Action = "typing"
	// MarkDelivered websocket action mark_delivered
	MarkDelivered Action = "mark_delivered"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// ReadConversation websocket action read_conversation
	ReadConversation Action = "read_conversation"
	// UserOnline websocket action user_online
	UserOnline Action = "user_online"
	// GetPresence websocket action get_presence
	GetPresence Action = "get_presence"
	// GetTyping websocket action get_typing
	GetTyping Action = "get_typing"

	// PresenceUpdated websocket push action presence_updated
	PresenceUpdated Action = "presence_updated"
	// TypingUpdated websocket push action typing_updated
	TypingUpdated Action = "typing_updated"
	// StatusUpdated websocket push action status_updated
	StatusUpdated Action = "status_updated"
)

// pub/sub channel naming
const (
	// PresenceChannel all presence updates
	PresenceChannel = "chat:presence"
	// TypingChannelPrefix per conversation typing channel
	TypingChannelPrefix = "chat:typing:"
	// UserChannelPrefix per user private queue
	UserChannelPrefix = "chat:user:"
)

// TypingChannel conversation typing channel name
func TypingChannel(conversationID string) string {
	return TypingChannelPrefix + conversationID
}

// UserChannel user private queue channel name
func UserChannel(userID string) string {
	return UserChannelPrefix + userID
}

// WSRequest websocket Request
type WSRequest struct {
	Action         string   `json:"action"`
	ConversationID string   `json:"conversation_id"`
	MessageID      string   `json:"message_id"`
	IsTyping       bool     `json:"is_typing"`
	UserIDs        []string `json:"user_ids"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
