package domain

import "time"

// PresenceStatus user realtime availability
type PresenceStatus string

const (
	// PresenceOnline user has at least one active session
	PresenceOnline PresenceStatus = "ONLINE"
	// PresenceAway no activity for 5 minutes
	PresenceAway PresenceStatus = "AWAY"
	// PresenceOffline no sessions, or idle over threshold
	PresenceOffline PresenceStatus = "OFFLINE"
)

// UserPresence 表示一個 user 的即時狀態，sessions 追蹤多個 tab/device
type UserPresence struct {
	UserID       string              `json:"user_id"`
	Status       PresenceStatus      `json:"status"`
	LastSeen     time.Time           `json:"last_seen"`
	Sessions     map[string]struct{} `json:"-"`
	LastActivity time.Time           `json:"last_activity"`
}

// PresenceUpdate broadcast payload for presence channel
type PresenceUpdate struct {
	UserID       string         `json:"user_id"`
	Status       PresenceStatus `json:"status"`
	LastSeen     time.Time      `json:"last_seen"`
	SessionCount int            `json:"session_count"`
}
