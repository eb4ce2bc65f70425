package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/marirs/velocty"
	"github.com/marirs/velocty/user"
)

// CreateUser persists a new user and assigns its ID.
func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	id, err := s.nextID(ctx, colUsers)
	if err != nil {
		return err
	}
	u.ID = id

	_, err = s.db.Collection(colUsers).InsertOne(ctx, toUserModel(u))
	if err != nil {
		u.ID = 0
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/mongo: create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.findUser(ctx, "get user", bson.M{"_id": id})
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, "get user by email", bson.M{"email": email})
}

// UpdateUser persists changes to an existing user.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()
	_, err := s.db.Collection(colUsers).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if isDuplicateKey(err) {
			return velocty.ErrDuplicateEmail
		}
		return fmt.Errorf("velocty/mongo: update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.db.Collection(colUsers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("velocty/mongo: delete user: %w", err)
	}
	return nil
}

// ListUsers returns users ordered by ID.
func (s *Store) ListUsers(ctx context.Context, opts user.ListOpts) ([]*user.User, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	applyWindow(findOpts, opts.Limit, opts.Offset)

	cursor, err := s.db.Collection(colUsers).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		s.readFailed("list users", err)
		return []*user.User{}, nil
	}
	defer cursor.Close(ctx)

	var models []userModel
	if err := cursor.All(ctx, &models); err != nil {
		s.readFailed("list users decode", err)
		return []*user.User{}, nil
	}

	out := make([]*user.User, 0, len(models))
	for i := range models {
		out = append(out, fromUserModel(&models[i]))
	}
	return out, nil
}

// CountUsers returns the total number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(colUsers).CountDocuments(ctx, bson.M{})
	if err != nil {
		s.readFailed("count users", err)
		return 0, nil
	}
	return n, nil
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*user.User, error) {
	var m userModel
	err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		s.readFailed(op, err)
		return nil, nil
	}
	return fromUserModel(&m), nil
}

// applyWindow sets limit and skip on find options. Zero limit means no
// limit.
func applyWindow(findOpts *options.FindOptionsBuilder, limit, offset int) {
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	if offset > 0 {
		findOpts.SetSkip(int64(offset))
	}
}
