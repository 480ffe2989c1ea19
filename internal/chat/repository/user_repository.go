package repository

import (
	"context"

	"chat_server/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository definition user directory lookup
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

type userRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create new mongo user repository
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{
		coll: db.Collection("users"),
	}
}

// GetUser find user by id
func (r *userRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
