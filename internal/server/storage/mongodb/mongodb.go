// Package mongodb хранит синхронизируемые записи в MongoDB.
// Пользователи и refresh токены остаются в SQLite.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "counters"

// Collection узкий срез *mongo.Collection, нужный хранилищу записей
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

var _ Collection = (*mongo.Collection)(nil)

// Connect устанавливает соединение с MongoDB и проверяет его
func Connect(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, error) {
	logger.DebugContext(ctx, "Connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.InfoContext(ctx, "Connected to MongoDB")
	return client, nil
}

// EnsureIndexes создает уникальный индекс позиции в потоке пользователя
func EnsureIndexes(ctx context.Context, records *mongo.Collection) error {
	_, err := records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_seq"),
	})
	if err != nil {
		return fmt.Errorf("failed to create records index: %w", err)
	}
	return nil
}

// NewFromDatabase собирает хранилище поверх коллекций базы
func NewFromDatabase(db *mongo.Database, collection string, logger *slog.Logger) *Store {
	return New(db.Collection(collection), db.Collection(countersCollection), logger)
}
