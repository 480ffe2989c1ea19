package app

import (
	"sync"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/pkg/logger"
)

const (
	// awayThreshold 無活動多久轉 AWAY
	awayThreshold = 5 * time.Minute
	// offlineThreshold 無活動多久轉 OFFLINE
	offlineThreshold = 15 * time.Minute
	// presenceEvictAfter OFFLINE 超過多久就從 map 移除
	presenceEvictAfter = 24 * time.Hour
)

// PresenceUseCase 追蹤 user 上線狀態，單一 process 內共用一份 map
// 狀態變化才 broadcast，限制 presence channel 的流量
type PresenceUseCase struct {
	mu          sync.Mutex
	presences   map[string]*domain.UserPresence
	broadcaster Broadcaster
}

// NewPresenceUseCase init presence use case
func NewPresenceUseCase(broadcaster Broadcaster) *PresenceUseCase {
	return &PresenceUseCase{
		presences:   make(map[string]*domain.UserPresence),
		broadcaster: broadcaster,
	}
}

// AddSession 註冊一個 session(tab/device)，user 不存在時建立
func (uc *PresenceUseCase) AddSession(userID, sessionID string) {
	now := time.Now()

	uc.mu.Lock()
	presence, ok := uc.presences[userID]
	if !ok {
		presence = &domain.UserPresence{
			UserID:   userID,
			Status:   domain.PresenceOnline,
			Sessions: make(map[string]struct{}),
		}
		uc.presences[userID] = presence
	}
	presence.Sessions[sessionID] = struct{}{}
	presence.Status = domain.PresenceOnline
	presence.LastActivity = now
	presence.LastSeen = now
	update := snapshotUpdate(presence)
	uc.mu.Unlock()

	uc.broadcastPresenceUpdate(update)
}

// RemoveSession 移除 session，最後一個 session 移除後轉 OFFLINE
func (uc *PresenceUseCase) RemoveSession(userID, sessionID string) {
	uc.mu.Lock()
	presence, ok := uc.presences[userID]
	if !ok {
		uc.mu.Unlock()
		return
	}
	delete(presence.Sessions, sessionID)
	presence.LastSeen = time.Now()
	if len(presence.Sessions) == 0 {
		presence.Status = domain.PresenceOffline
	} else {
		// 還有其他 tab/device -> 維持 online
		presence.Status = domain.PresenceOnline
	}
	update := snapshotUpdate(presence)
	uc.mu.Unlock()

	uc.broadcastPresenceUpdate(update)
}

// RecordActivity 更新活動時間，只有 AWAY -> ONLINE 的轉換才 broadcast
func (uc *PresenceUseCase) RecordActivity(userID string) {
	uc.mu.Lock()
	presence, ok := uc.presences[userID]
	if !ok {
		uc.mu.Unlock()
		return
	}
	presence.LastActivity = time.Now()

	if presence.Status != domain.PresenceAway || len(presence.Sessions) == 0 {
		uc.mu.Unlock()
		return
	}
	presence.Status = domain.PresenceOnline
	update := snapshotUpdate(presence)
	uc.mu.Unlock()

	uc.broadcastPresenceUpdate(update)
}

// GetPresence 取得單一 user 狀態快照，不存在回傳 nil
func (uc *PresenceUseCase) GetPresence(userID string) *domain.UserPresence {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	presence, ok := uc.presences[userID]
	if !ok {
		return nil
	}
	snapshot := *presence
	snapshot.Sessions = make(map[string]struct{}, len(presence.Sessions))
	for id := range presence.Sessions {
		snapshot.Sessions[id] = struct{}{}
	}
	return &snapshot
}

// GetOnlineUsers 目前 ONLINE 的 user id
func (uc *PresenceUseCase) GetOnlineUsers() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	users := make([]string, 0, len(uc.presences))
	for id, presence := range uc.presences {
		if presence.Status == domain.PresenceOnline {
			users = append(users, id)
		}
	}
	return users
}

// GetBulkPresence 批次查詢，沒追蹤到的 user 一律 OFFLINE
func (uc *PresenceUseCase) GetBulkPresence(userIDs []string) map[string]domain.PresenceStatus {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	result := make(map[string]domain.PresenceStatus, len(userIDs))
	for _, id := range userIDs {
		if presence, ok := uc.presences[id]; ok {
			result[id] = presence.Status
		} else {
			result[id] = domain.PresenceOffline
		}
	}
	return result
}

// CheckStatuses 定時(60s)重新計算所有 user 狀態
// sessions 空或 idle >= 15m -> OFFLINE；idle >= 5m -> AWAY；否則 ONLINE
// 只有狀態真的改變才 broadcast；OFFLINE 超過 24h 的 entry 直接移除
func (uc *PresenceUseCase) CheckStatuses() {
	now := time.Now()
	var updates []domain.PresenceUpdate

	uc.mu.Lock()
	for userID, presence := range uc.presences {
		idle := now.Sub(presence.LastActivity)

		var newStatus domain.PresenceStatus
		switch {
		case len(presence.Sessions) == 0:
			newStatus = domain.PresenceOffline
		case idle >= offlineThreshold:
			newStatus = domain.PresenceOffline
		case idle >= awayThreshold:
			newStatus = domain.PresenceAway
		default:
			newStatus = domain.PresenceOnline
		}

		if newStatus != presence.Status {
			presence.Status = newStatus
			if newStatus == domain.PresenceOffline {
				// offline 之後 session set 一定是空的
				presence.Sessions = make(map[string]struct{})
			}
			updates = append(updates, snapshotUpdate(presence))
		}

		if presence.Status == domain.PresenceOffline && presence.LastSeen.Before(now.Add(-presenceEvictAfter)) {
			delete(uc.presences, userID)
		}
	}
	uc.mu.Unlock()

	for _, update := range updates {
		uc.broadcastPresenceUpdate(update)
	}
}

func snapshotUpdate(presence *domain.UserPresence) domain.PresenceUpdate {
	return domain.PresenceUpdate{
		UserID:       presence.UserID,
		Status:       presence.Status,
		LastSeen:     presence.LastSeen,
		SessionCount: len(presence.Sessions),
	}
}

// broadcast 失敗只記 log，狀態本身已經改完
func (uc *PresenceUseCase) broadcastPresenceUpdate(update domain.PresenceUpdate) {
	if err := uc.broadcaster.Publish(domain.PresenceChannel, update); err != nil {
		logger.Log.Errorf("Failed to broadcast presence update:", err)
	}
}
