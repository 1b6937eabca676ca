package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dieti-tracker/internal/models"
)

// userFilter matches both ObjectID and plain string user ids.
func userFilter(userID string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, userID}}}
	}
	return bson.M{"_id": userID}
}

// GetGoals returns the user's goals, or the defaults when none are set.
func (db *DB) GetGoals(ctx context.Context, userID string) (models.Goal, error) {
	var user struct {
		Goals *models.Goal `bson:"goals"`
	}
	err := db.users.FindOne(ctx, userFilter(userID),
		options.FindOne().SetProjection(bson.M{"goals": 1})).Decode(&user)
	if err == mongo.ErrNoDocuments || (err == nil && user.Goals == nil) {
		return models.DefaultGoal(), nil
	}
	if err != nil {
		return models.Goal{}, fmt.Errorf("failed to find user goals: %w", err)
	}
	return *user.Goals, nil
}

// SetGoals stores goals on the user document, creating it when missing.
func (db *DB) SetGoals(ctx context.Context, userID string, g models.Goal) error {
	filter := userFilter(userID)
	res, err := db.users.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"goals": g}})
	if err != nil {
		return fmt.Errorf("failed to update user goals: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	_, err = db.users.InsertOne(ctx, bson.M{"_id": userID, "goals": g})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// InsertSession stores a bearer session.
func (db *DB) InsertSession(ctx context.Context, s models.Session) error {
	if _, err := db.sessions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// FindSession looks a session up by its token hash.
func (db *DB) FindSession(ctx context.Context, tokenHash string) (models.Session, error) {
	var s models.Session
	err := db.sessions.FindOne(ctx, bson.M{"_id": tokenHash}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}
