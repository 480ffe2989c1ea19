package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTypingUseCaseForTest() (*TypingUseCase, *MockUserRepository, *MockBroadcaster) {
	logger.SetNewNop()
	userRepo := new(MockUserRepository)
	broadcaster := new(MockBroadcaster)
	broadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return NewTypingUseCase(userRepo, broadcaster), userRepo, broadcaster
}

func TestHandleTypingStartAndStop(t *testing.T) {
	uc, userRepo, broadcaster := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", FullName: "Alice Chen"}, nil)

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)

	typing := uc.GetTypingUsers("conv-1")
	assert.Len(t, typing, 1)
	assert.Equal(t, "user-1", typing[0].UserID)
	assert.Equal(t, "Alice Chen", typing[0].UserName)
	assert.Equal(t, 1, broadcaster.PublishCount(domain.TypingChannel("conv-1")))

	uc.HandleTyping(context.Background(), "conv-1", "user-1", false)
	assert.Empty(t, uc.GetTypingUsers("conv-1"))
	assert.Equal(t, 2, broadcaster.PublishCount(domain.TypingChannel("conv-1")))
}

func TestHandleTypingUnknownUserFallback(t *testing.T) {
	uc, userRepo, _ := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, "user-x").Return(nil, errors.New("not found"))

	uc.HandleTyping(context.Background(), "conv-1", "user-x", true)

	typing := uc.GetTypingUsers("conv-1")
	assert.Len(t, typing, 1)
	assert.Equal(t, "Unknown User", typing[0].UserName)
}

func TestHandleTypingRepeatRefreshesStartTime(t *testing.T) {
	uc, userRepo, _ := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", FullName: "Alice Chen"}, nil)

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)
	uc.mu.Lock()
	uc.typingUsers["conv-1"]["user-1"] = domain.TypingUser{
		UserID:    "user-1",
		UserName:  "Alice Chen",
		StartTime: time.Now().Add(-2 * time.Second),
	}
	uc.mu.Unlock()

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)

	uc.mu.Lock()
	refreshed := uc.typingUsers["conv-1"]["user-1"].StartTime
	uc.mu.Unlock()
	assert.WithinDuration(t, time.Now(), refreshed, time.Second)
}

func TestCleanupExpiredRemovesStaleTyping(t *testing.T) {
	uc, userRepo, broadcaster := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, mock.Anything).Return(&domain.User{ID: "user-1", FullName: "Alice Chen"}, nil)

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)
	uc.HandleTyping(context.Background(), "conv-2", "user-2", true)

	// conv-1 的 entry 過期，conv-2 還新鮮
	uc.mu.Lock()
	stale := uc.typingUsers["conv-1"]["user-1"]
	stale.StartTime = time.Now().Add(-5 * time.Second)
	uc.typingUsers["conv-1"]["user-1"] = stale
	uc.mu.Unlock()

	before1 := broadcaster.PublishCount(domain.TypingChannel("conv-1"))
	before2 := broadcaster.PublishCount(domain.TypingChannel("conv-2"))

	uc.CleanupExpired()

	assert.Empty(t, uc.GetTypingUsers("conv-1"))
	assert.Len(t, uc.GetTypingUsers("conv-2"), 1)
	// 只有真的移除東西的 conversation 才 broadcast
	assert.Equal(t, before1+1, broadcaster.PublishCount(domain.TypingChannel("conv-1")))
	assert.Equal(t, before2, broadcaster.PublishCount(domain.TypingChannel("conv-2")))
}

func TestClearUserTypingAcrossConversations(t *testing.T) {
	uc, userRepo, broadcaster := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, mock.Anything).Return(&domain.User{ID: "user-1", FullName: "Alice Chen"}, nil)

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)
	uc.HandleTyping(context.Background(), "conv-2", "user-1", true)
	uc.HandleTyping(context.Background(), "conv-2", "user-2", true)

	before1 := broadcaster.PublishCount(domain.TypingChannel("conv-1"))
	before2 := broadcaster.PublishCount(domain.TypingChannel("conv-2"))

	uc.ClearUserTyping("user-1")

	assert.Empty(t, uc.GetTypingUsers("conv-1"))
	typing := uc.GetTypingUsers("conv-2")
	assert.Len(t, typing, 1)
	assert.Equal(t, "user-2", typing[0].UserID)
	assert.Equal(t, before1+1, broadcaster.PublishCount(domain.TypingChannel("conv-1")))
	assert.Equal(t, before2+1, broadcaster.PublishCount(domain.TypingChannel("conv-2")))
}

func TestClearTypingBroadcastsEmptySet(t *testing.T) {
	uc, userRepo, broadcaster := newTypingUseCaseForTest()
	userRepo.On("GetUser", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", FullName: "Alice Chen"}, nil)

	uc.HandleTyping(context.Background(), "conv-1", "user-1", true)
	uc.ClearTyping("conv-1", "user-1")

	assert.Empty(t, uc.GetTypingUsers("conv-1"))

	last := broadcaster.Calls[len(broadcaster.Calls)-1]
	message, ok := last.Arguments.Get(1).(domain.TypingUpdateMessage)
	assert.True(t, ok)
	assert.Equal(t, "conv-1", message.ConversationID)
	assert.Empty(t, message.TypingUsers)
}
