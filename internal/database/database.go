package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a looked-up document does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps MongoDB operations
type DB struct {
	client        *mongo.Client
	dailyLog      *mongo.Collection
	historicalLog *mongo.Collection
	intake        *mongo.Collection
	recipes       *mongo.Collection
	taco          *mongo.Collection
	users         *mongo.Collection
	sessions      *mongo.Collection
}

// New creates a new database connection
func New(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(dbName)

	log.Println("Successfully connected to MongoDB")
	return &DB{
		client:        client,
		dailyLog:      database.Collection("daily_log"),
		historicalLog: database.Collection("historical_log"),
		intake:        database.Collection("daily_intake"),
		recipes:       database.Collection("recipes"),
		taco:          database.Collection("taco"),
		users:         database.Collection("users"),
		sessions:      database.Collection("sessions"),
	}, nil
}

// Close closes the database connection
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Ping checks that the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

// EnsureIndexes creates the indexes the queries rely on. One intake document
// per (user, date) is enforced here.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	userDate := bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}

	_, err := db.intake.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    userDate,
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create intake index: %w", err)
	}
	for _, coll := range []*mongo.Collection{db.dailyLog, db.historicalLog} {
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: userDate}); err != nil {
			return fmt.Errorf("failed to create %s index: %w", coll.Name(), err)
		}
	}
	_, err = db.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}}})
	if err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}
	return nil
}
