package app

import (
	"context"
	"sync"
	"time"

	"chat_server/internal/chat/domain"
	"chat_server/pkg"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"
)

// MockBroadcaster Mock Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

// Publish moke publish
func (m *MockBroadcaster) Publish(channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

// PublishCount 計算發到某個 channel 的次數
func (m *MockBroadcaster) PublishCount(channel string) int {
	count := 0
	for _, call := range m.Calls {
		if call.Method == "Publish" && call.Arguments.String(0) == channel {
			count++
		}
	}
	return count
}

// MockConversationRepository Mock ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

// FindByID moke find conversation by id
func (m *MockConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindUserConversations moke find conversations of user
func (m *MockConversationRepository) FindUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// GetUser moke find user by id
func (m *MockUserRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeMessageRepo 有狀態的 in-memory message store
// receipt 的冪等/counter 行為要靠真的套用 update 才驗得出來
type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message
}

func newFakeMessageRepo(msgs ...*domain.Message) *fakeMessageRepo {
	r := &fakeMessageRepo{messages: make(map[string]*domain.Message)}
	for _, m := range msgs {
		r.messages[m.ID] = m
	}
	return r
}

func (r *fakeMessageRepo) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	snapshot := *msg
	return &snapshot, nil
}

func (r *fakeMessageRepo) IncrementDeliveredCount(ctx context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	now := time.Now()
	msg.DeliveredCount++
	msg.DeliveredAt = &now
	return nil
}

func (r *fakeMessageRepo) AddToDeliveredIds(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	now := time.Now()
	if !pkg.Contains(msg.DeliveredIds, userID) {
		msg.DeliveredIds = append(msg.DeliveredIds, userID)
	}
	msg.DeliveredAt = &now
	return nil
}

func (r *fakeMessageRepo) IncrementReadCount(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	now := time.Now()
	msg.ReadCount++
	msg.LastReadAt = &now
	if !pkg.Contains(msg.ReadIds, userID) {
		msg.ReadIds = append(msg.ReadIds, userID)
	}
	return nil
}

func (r *fakeMessageRepo) AddToReadIds(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	now := time.Now()
	if !pkg.Contains(msg.ReadIds, userID) {
		msg.ReadIds = append(msg.ReadIds, userID)
	}
	msg.ReadAt = &now
	msg.LastReadAt = &now
	return nil
}

func (r *fakeMessageRepo) FindUnreadMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID && msg.FromUserID != userID && !pkg.Contains(msg.ReadIds, userID) {
			result = append(result, *msg)
		}
	}
	return result, nil
}

func (r *fakeMessageRepo) FindRecentUndelivered(ctx context.Context, conversationID, userID string, after time.Time) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID == conversationID && msg.FromUserID != userID &&
			!pkg.Contains(msg.DeliveredIds, userID) && !msg.SentAt.Before(after) {
			result = append(result, *msg)
		}
	}
	return result, nil
}
