package repository

import (
	"context"
	"time"

	"chat_server/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition message delivery/read bookkeeping
// 所有寫入都是 single-document atomic update，避免多個 recipient 同時 ack 造成 lost update
type MessageRepository interface {
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	// IncrementDeliveredCount 大群組模式：$inc delivered_count
	IncrementDeliveredCount(ctx context.Context, messageID string) error
	// AddToDeliveredIds 小群組模式：$addToSet delivered_ids（重複 ack 冪等）
	AddToDeliveredIds(ctx context.Context, messageID, userID string) error
	// IncrementReadCount 大群組模式：$inc read_count 同時 $addToSet read_ids
	IncrementReadCount(ctx context.Context, messageID, userID string) error
	// AddToReadIds 小群組模式：$addToSet read_ids
	AddToReadIds(ctx context.Context, messageID, userID string) error
	// FindUnreadMessages conversation 內 userID 尚未讀的訊息（不含自己發的）
	FindUnreadMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error)
	// FindRecentUndelivered after 之後尚未 delivered 給 userID 的訊息
	FindRecentUndelivered(ctx context.Context, conversationID, userID string, after time.Time) ([]domain.Message, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": messageID}).Decode(&msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// IncrementDeliveredCount 大群組不追蹤個別 id，只累加 counter
func (r *messageRepository) IncrementDeliveredCount(ctx context.Context, messageID string) error {
	filter := bson.M{"_id": messageID}
	update := bson.M{
		"$inc": bson.M{"delivered_count": 1},
		"$set": bson.M{"delivered_at": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *messageRepository) AddToDeliveredIds(ctx context.Context, messageID, userID string) error {
	filter := bson.M{"_id": messageID}
	update := bson.M{
		"$addToSet": bson.M{"delivered_ids": userID},
		"$set":      bson.M{"delivered_at": time.Now()},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

// IncrementReadCount read 的 counter 模式仍保留 read_ids set，
// 防止同一 user 重複送 read signal 被重複計數
func (r *messageRepository) IncrementReadCount(ctx context.Context, messageID, userID string) error {
	filter := bson.M{"_id": messageID}
	update := bson.M{
		"$inc":      bson.M{"read_count": 1},
		"$set":      bson.M{"last_read_at": time.Now()},
		"$addToSet": bson.M{"read_ids": userID},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *messageRepository) AddToReadIds(ctx context.Context, messageID, userID string) error {
	now := time.Now()
	filter := bson.M{"_id": messageID}
	update := bson.M{
		"$addToSet": bson.M{"read_ids": userID},
		"$set":      bson.M{"read_at": now, "last_read_at": now},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update)
	return err
}

func (r *messageRepository) FindUnreadMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"from_user_id":    bson.M{"$ne": userID},
		"read_ids":        bson.M{"$ne": userID},
	}
	opts := options.Find().SetSort(bson.M{"sent_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindRecentUndelivered(ctx context.Context, conversationID, userID string, after time.Time) ([]domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"from_user_id":    bson.M{"$ne": userID},
		"delivered_ids":   bson.M{"$ne": userID},
		"sent_at":         bson.M{"$gte": after},
	}
	opts := options.Find().SetSort(bson.M{"sent_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
