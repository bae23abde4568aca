package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
)

var readingsKey = bson.D{{Key: "login", Value: 1}, {Key: "month", Value: 1}}

// ReadingsRepository stores one document per (login, month).
type ReadingsRepository struct {
	coll *mongo.Collection
}

func NewReadingsRepository(db *mongo.Database) *ReadingsRepository {
	return &ReadingsRepository{coll: db.Collection(readingsCollection)}
}

// historySort orders a user's submissions by submission time. ObjectIDs
// minted by different clients are not monotonic, so _id only breaks ties.
var historySort = bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}}

type readingsDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Login       string             `bson:"login"`
	Month       int                `bson:"month"`
	Readings    map[string]float64 `bson:"readings"`
	SubmittedAt time.Time          `bson:"submitted_at"`
}

func (d readingsDoc) toDomain() domain.Submission {
	return domain.Submission{
		Month:       time.Month(d.Month),
		Readings:    domain.Readings(d.Readings),
		SubmittedAt: d.SubmittedAt.UTC(),
	}
}

func (r *ReadingsRepository) Add(ctx context.Context, login string, month time.Month, readings domain.Readings) error {
	doc := readingsDoc{
		Login:       login,
		Month:       int(month),
		Readings:    readings.Clone(),
		SubmittedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadySubmitted
		}
		return domain.NewStorageError("insert readings", err)
	}
	return nil
}

// ListByUser returns submissions in the order they were submitted.
func (r *ReadingsRepository) ListByUser(ctx context.Context, login string) (domain.History, error) {
	opts := options.Find().SetSort(historySort)
	cur, err := r.coll.Find(ctx, bson.M{"login": login}, opts)
	if err != nil {
		return nil, domain.NewStorageError("list readings", err)
	}

	var docs []readingsDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.NewStorageError("list readings", err)
	}

	history := make(domain.History, 0, len(docs))
	for _, d := range docs {
		history = append(history, d.toDomain())
	}
	return history, nil
}

func (r *ReadingsRepository) FindByMonth(ctx context.Context, login string, month time.Month) (domain.Readings, bool, error) {
	var d readingsDoc
	err := r.coll.FindOne(ctx, bson.M{"login": login, "month": int(month)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, domain.NewStorageError("find readings", err)
	}
	return domain.Readings(d.Readings), true, nil
}

var _ ports.ReadingsRepository = (*ReadingsRepository)(nil)
