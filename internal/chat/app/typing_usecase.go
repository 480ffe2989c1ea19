package app

import (
	"context"
	"sync"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/internal/chat/repository"
	"chat_server/pkg/logger"
)

// typingTimeout 超過這個時間沒有新的 typing signal 就視為停止輸入
const typingTimeout = 3 * time.Second

// TypingUseCase 追蹤每個 conversation 正在輸入的 user
// Map<conversationID, Map<userID, TypingUser>>
type TypingUseCase struct {
	mu          sync.Mutex
	typingUsers map[string]map[string]domain.TypingUser
	userRepo    repository.UserRepository
	broadcaster Broadcaster
}

// NewTypingUseCase init typing use case
func NewTypingUseCase(userRepo repository.UserRepository, broadcaster Broadcaster) *TypingUseCase {
	return &TypingUseCase{
		typingUsers: make(map[string]map[string]domain.TypingUser),
		userRepo:    userRepo,
		broadcaster: broadcaster,
	}
}

// HandleTyping typing signal 進入點，isTyping=true 刷新 StartTime，false 移除
func (uc *TypingUseCase) HandleTyping(ctx context.Context, conversationID, userID string, isTyping bool) {
	userName := "Unknown User"
	if user, err := uc.userRepo.GetUser(ctx, userID); err == nil && user != nil {
		userName = user.FullName
	}

	if isTyping {
		uc.startTyping(conversationID, userID, userName)
	} else {
		uc.stopTyping(conversationID, userID)
	}

	uc.broadcastTypingUpdate(conversationID)
}

// ClearTyping 送出訊息後立刻停止 typing，不等過期
func (uc *TypingUseCase) ClearTyping(conversationID, userID string) {
	uc.stopTyping(conversationID, userID)
	uc.broadcastTypingUpdate(conversationID)
}

// ClearUserTyping 斷線時把 user 從所有 conversation 的 typing set 移除
// 每個受影響的 conversation 各 broadcast 一次
func (uc *TypingUseCase) ClearUserTyping(userID string) {
	var affected []string

	uc.mu.Lock()
	for conversationID, users := range uc.typingUsers {
		if _, ok := users[userID]; !ok {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(uc.typingUsers, conversationID)
		}
		affected = append(affected, conversationID)
	}
	uc.mu.Unlock()

	for _, conversationID := range affected {
		uc.broadcastTypingUpdate(conversationID)
	}
}

// GetTypingUsers 目前 conversation 內正在輸入的 user
func (uc *TypingUseCase) GetTypingUsers(conversationID string) []domain.TypingUser {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return typingSnapshot(uc.typingUsers[conversationID])
}

// CleanupExpired 定時(1s)移除過期 entry，有移除的 conversation 才 broadcast
func (uc *TypingUseCase) CleanupExpired() {
	now := time.Now()
	var affected []string

	uc.mu.Lock()
	for conversationID, users := range uc.typingUsers {
		removed := false
		for userID, tu := range users {
			if tu.StartTime.Add(typingTimeout).Before(now) {
				delete(users, userID)
				removed = true
			}
		}
		if len(users) == 0 {
			delete(uc.typingUsers, conversationID)
		}
		if removed {
			affected = append(affected, conversationID)
		}
	}
	uc.mu.Unlock()

	for _, conversationID := range affected {
		uc.broadcastTypingUpdate(conversationID)
	}
}

func (uc *TypingUseCase) startTyping(conversationID, userID, userName string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	users, ok := uc.typingUsers[conversationID]
	if !ok {
		users = make(map[string]domain.TypingUser)
		uc.typingUsers[conversationID] = users
	}
	// 重複的 typing signal 直接覆蓋，StartTime 重新起算
	users[userID] = domain.TypingUser{
		UserID:    userID,
		UserName:  userName,
		StartTime: time.Now(),
	}
}

func (uc *TypingUseCase) stopTyping(conversationID, userID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	users, ok := uc.typingUsers[conversationID]
	if !ok {
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(uc.typingUsers, conversationID)
	}
}

// broadcastTypingUpdate 廣播 conversation 當下完整 typing set（可能是空的）
func (uc *TypingUseCase) broadcastTypingUpdate(conversationID string) {
	uc.mu.Lock()
	current := typingSnapshot(uc.typingUsers[conversationID])
	uc.mu.Unlock()

	message := domain.TypingUpdateMessage{
		ConversationID: conversationID,
		TypingUsers:    current,
	}
	if err := uc.broadcaster.Publish(domain.TypingChannel(conversationID), message); err != nil {
		logger.Log.Errorf("Failed to broadcast typing update:", err)
	}
}

func typingSnapshot(users map[string]domain.TypingUser) []domain.TypingUser {
	result := make([]domain.TypingUser, 0, len(users))
	for _, tu := range users {
		result = append(result, tu)
	}
	return result
}
