package repository

import (
	"context"

	"chat_server/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConversationRepository definition conversation lookup
type ConversationRepository interface {
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// FindUserConversations userID 參與的所有 conversation
	FindUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create new mongo conversation repository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{
		coll: db.Collection("conversations"),
	}
}

// FindByID find conversation by id
func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindUserConversations find all conversations of a user
func (r *conversationRepository) FindUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	filter := bson.M{"members": userID}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var conversations []domain.Conversation
	if err := cur.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}
