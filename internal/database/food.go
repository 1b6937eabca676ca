package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dieti-tracker/internal/models"
)

// FoodUpdate carries the editable fields of a logged entry.
type FoodUpdate struct {
	Grams  float64
	Macros models.Macros
}

// AddFoodEntry logs entry and recomputes the intake of its date. Entries for
// a past date are written to the historical log as well. created is false
// when an entry with the same ID was already stored.
func (db *DB) AddFoodEntry(ctx context.Context, e models.FoodLogEntry, today models.Date) (bool, error) {
	created := true
	if _, err := db.dailyLog.InsertOne(ctx, e); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to insert food entry: %w", err)
		}
		created = false
	}
	if e.Date != today {
		if _, err := db.historicalLog.InsertOne(ctx, e); err != nil && !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to insert historical food entry: %w", err)
		}
	}
	if _, err := db.recomputeIntake(ctx, e.UserID, e.Date); err != nil {
		return false, err
	}
	return created, nil
}

// UpdateFoodEntry changes grams and macros of an entry in whichever log
// holds it and recomputes that day's intake.
func (db *DB) UpdateFoodEntry(ctx context.Context, userID, id string, u FoodUpdate) (models.FoodLogEntry, error) {
	filter := bson.M{"_id": id, "user_id": userID}
	set := bson.M{"$set": bson.M{
		"grams":     u.Grams,
		"calorias":  u.Macros.Calorias,
		"proteinas": u.Macros.Proteinas,
		"carbo":     u.Macros.Carbo,
		"gordura":   u.Macros.Gordura,
	}}

	var entry models.FoodLogEntry
	found := false
	for _, coll := range []*mongo.Collection{db.dailyLog, db.historicalLog} {
		err := coll.FindOneAndUpdate(ctx, filter, set,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&entry)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return models.FoodLogEntry{}, fmt.Errorf("failed to update food entry: %w", err)
		}
		found = true
	}
	if !found {
		return models.FoodLogEntry{}, ErrNotFound
	}
	if _, err := db.recomputeIntake(ctx, userID, entry.Date); err != nil {
		return models.FoodLogEntry{}, err
	}
	return entry, nil
}

// DeleteFoodEntry removes an entry from both logs and recomputes that day's
// intake.
func (db *DB) DeleteFoodEntry(ctx context.Context, userID, id string) error {
	filter := bson.M{"_id": id, "user_id": userID}

	var entry models.FoodLogEntry
	found := false
	for _, coll := range []*mongo.Collection{db.dailyLog, db.historicalLog} {
		err := coll.FindOneAndDelete(ctx, filter).Decode(&entry)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to delete food entry: %w", err)
		}
		found = true
	}
	if !found {
		return ErrNotFound
	}
	_, err := db.recomputeIntake(ctx, userID, entry.Date)
	return err
}

// GetFoodLog returns the entries of date. Past dates are read from the
// historical log, falling back to the daily log when the rollover has not
// run yet.
func (db *DB) GetFoodLog(ctx context.Context, userID string, date, today models.Date) ([]models.FoodLogEntry, error) {
	filter := bson.M{"user_id": userID, "date": date}

	if date != today {
		entries, err := db.findEntries(ctx, db.historicalLog, filter)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return db.findEntries(ctx, db.dailyLog, filter)
}

// GetDailyIntake returns the stored totals for date, zero when nothing was
// logged.
func (db *DB) GetDailyIntake(ctx context.Context, userID string, date models.Date) (models.DailyIntake, error) {
	intake := models.DailyIntake{UserID: userID, Date: date}
	err := db.intake.FindOne(ctx, bson.M{"user_id": userID, "date": date}).Decode(&intake)
	if err != nil && err != mongo.ErrNoDocuments {
		return models.DailyIntake{}, fmt.Errorf("failed to find daily intake: %w", err)
	}
	return intake, nil
}

// GetHistory returns the intake rows of the last days days up to today in
// ascending date order. Days without a record are absent.
func (db *DB) GetHistory(ctx context.Context, userID string, days int, today models.Date) ([]models.DailyIntake, error) {
	if days <= 0 {
		return []models.DailyIntake{}, nil
	}
	cutoff := today.AddDays(-(days - 1))
	filter := bson.M{"user_id": userID, "date": bson.M{"$gte": cutoff, "$lte": today}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetLimit(int64(days))

	cursor, err := db.intake.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch intake history: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []models.DailyIntake{}
	for cursor.Next(ctx) {
		var row models.DailyIntake
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode intake row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, cursor.Err()
}

// Rollover moves daily log entries older than today to the historical log
// and returns how many were moved.
func (db *DB) Rollover(ctx context.Context, today models.Date) (int, error) {
	stale, err := db.findEntries(ctx, db.dailyLog, bson.M{"date": bson.M{"$lt": today}})
	if err != nil {
		return 0, err
	}

	touched := make(map[[2]string]bool)
	moved := 0
	for _, e := range stale {
		if _, err := db.historicalLog.InsertOne(ctx, e); err != nil && !mongo.IsDuplicateKeyError(err) {
			return moved, fmt.Errorf("failed to archive food entry: %w", err)
		}
		if _, err := db.dailyLog.DeleteOne(ctx, bson.M{"_id": e.ID}); err != nil {
			return moved, fmt.Errorf("failed to remove rolled over entry: %w", err)
		}
		touched[[2]string{e.UserID, string(e.Date)}] = true
		moved++
	}
	for k := range touched {
		if _, err := db.recomputeIntake(ctx, k[0], models.Date(k[1])); err != nil {
			return moved, err
		}
	}
	return moved, nil
}

// recomputeIntake sums both logs for (user, date) and upserts the intake
// document.
func (db *DB) recomputeIntake(ctx context.Context, userID string, date models.Date) (models.Macros, error) {
	filter := bson.M{"user_id": userID, "date": date}

	var all []models.FoodLogEntry
	for _, coll := range []*mongo.Collection{db.dailyLog, db.historicalLog} {
		entries, err := db.findEntries(ctx, coll, filter)
		if err != nil {
			return models.Macros{}, err
		}
		all = append(all, entries...)
	}
	total := SumEntries(all)

	_, err := db.intake.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{
			"calorias":  total.Calorias,
			"proteinas": total.Proteinas,
			"carbo":     total.Carbo,
			"gordura":   total.Gordura,
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return models.Macros{}, fmt.Errorf("failed to update daily intake: %w", err)
	}
	return total, nil
}

func (db *DB) findEntries(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]models.FoodLogEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch food entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.FoodLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode food entries: %w", err)
	}
	return entries, nil
}

// SumEntries totals entries, counting an ID present in both logs once.
func SumEntries(entries []models.FoodLogEntry) models.Macros {
	seen := make(map[string]bool, len(entries))
	var total models.Macros
	for _, e := range entries {
		if e.ID != "" {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
		}
		total = total.Add(e.Macros.Sanitized())
	}
	return total
}
