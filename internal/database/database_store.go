package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserStore keeps users in the users collection.
type MongoUserStore struct {
	collection       *mongo.Collection
	operationTimeout time.Duration
}

func NewMongoUserStore(db *Database) *MongoUserStore {
	return &MongoUserStore{
		collection:       db.Database.Collection(UserCollectionName),
		operationTimeout: db.OperationTimeout,
	}
}

func (ds *MongoUserStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ds.operationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ds.operationTimeout)
}

func classify(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("unique key conflicts: %w", err)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrUserNotFound
	}
	return fmt.Errorf("database operation failed: %w", err)
}

func (ds *MongoUserStore) FindUser(ctx context.Context, login string) (*User, error) {
	if login == "" {
		return nil, ErrLoginEmpty
	}
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	filter := bson.D{{Key: "login", Value: login}}
	var user User

	startTime := time.Now()
	err := ds.collection.FindOne(ctx, filter).Decode(&user)
	logger.DebugF("user query cost: %v", time.Since(startTime))

	if err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

func (ds *MongoUserStore) SaveUser(ctx context.Context, user *User) error {
	if user.Login == "" {
		return ErrLoginEmpty
	}
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	stored := *user
	stored.UpdatedAt = time.Now()
	filter := bson.D{{Key: "login", Value: user.Login}}
	opts := options.Replace().SetUpsert(true)

	result, err := ds.collection.ReplaceOne(ctx, filter, stored, opts)
	if err != nil {
		return classify(err)
	}

	logger.InfoF("User saved: login=%s, matched=%d, modified=%d, upserted=%v",
		user.Login,
		result.MatchedCount,
		result.ModifiedCount,
		result.UpsertedID != nil,
	)
	return nil
}

func (ds *MongoUserStore) DeleteUser(ctx context.Context, login string) error {
	if login == "" {
		return ErrLoginEmpty
	}
	ctx, cancel := ds.withTimeout(ctx)
	defer cancel()

	filter := bson.D{{Key: "login", Value: login}}
	result, err := ds.collection.DeleteOne(ctx, filter)
	if err != nil {
		return classify(err)
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}

	logger.InfoF("User deleted: login=%s", login)
	return nil
}
