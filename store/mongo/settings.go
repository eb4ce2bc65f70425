package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty/settings"
)

// GetSetting retrieves a setting by exact key match.
func (s *Store) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	var m settingModel
	err := s.db.Collection(colSettings).FindOne(ctx, bson.M{"_id": key}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed("get setting", err)
		return nil, nil
	}
	return fromSettingModel(&m), nil
}

// SetSetting upserts a setting. Last write wins.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	t := now()
	_, err := s.db.Collection(colSettings).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{
			"$set":         bson.M{"value": value, "updated_at": t},
			"$setOnInsert": bson.M{"created_at": t},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("velocty/mongo: set setting: %w", err)
	}
	return nil
}

// AllSettings returns every setting ordered by key. Errors propagate so
// the settings cache can keep its previous snapshot on a failed refresh.
func (s *Store) AllSettings(ctx context.Context) ([]*settings.Setting, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(colSettings).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("velocty/mongo: all settings: %w", err)
	}
	defer cursor.Close(ctx)

	var models []settingModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("velocty/mongo: all settings decode: %w", err)
	}

	out := make([]*settings.Setting, 0, len(models))
	for i := range models {
		out = append(out, fromSettingModel(&models[i]))
	}
	return out, nil
}

// DeleteSetting removes a setting by key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.Collection(colSettings).DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete setting: %w", err)
	}
	return nil
}
