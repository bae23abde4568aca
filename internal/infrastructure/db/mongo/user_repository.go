package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Login        string             `bson:"login"`
	PasswordHash string             `bson:"password"`
	Role         string             `bson:"role"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

func (m mongoUser) toDomain() (domain.User, error) {
	role, ok := domain.ParseRole(m.Role)
	if !ok {
		return domain.User{}, fmt.Errorf("unknown role %q", m.Role)
	}
	return domain.User{
		ID:           m.ID.Hex(),
		Login:        m.Login,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    unixToTime(m.CreatedAt),
		UpdatedAt:    unixToTime(m.UpdatedAt),
	}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := mongoUser{
		ID:           primitive.NewObjectID(),
		Login:        user.Login,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt.Unix(),
		UpdatedAt:    user.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return domain.NewStorageError("insert user", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (domain.User, bool, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"login": login}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, domain.NewStorageError("find user", err)
	}

	u, err := mu.toDomain()
	if err != nil {
		return domain.User{}, false, domain.NewStorageError("find user", err)
	}
	return u, true, nil
}

func (r *UserRepository) PasswordByLogin(ctx context.Context, login string) (string, bool, error) {
	u, found, err := r.FindByLogin(ctx, login)
	if err != nil || !found {
		return "", found, err
	}
	return u.PasswordHash, true, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, login, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"login": login},
		bson.M{"$set": bson.M{"password": passwordHash, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return domain.NewStorageError("update password", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListLogins(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"login": 1}).
		SetSort(bson.D{{Key: "login", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list logins", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStorageError("list logins", err)
	}

	logins := make([]string, 0, len(docs))
	for _, d := range docs {
		logins = append(logins, d.Login)
	}
	return logins, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

var _ ports.UserRepository = (*UserRepository)(nil)
