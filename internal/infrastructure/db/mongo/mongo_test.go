package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/meterdesk/readings/internal/core/domain"
)

func TestMongoUser_ToDomain(t *testing.T) {
	id := primitive.NewObjectID()
	u, err := mongoUser{ID: id, Login: "admin", Role: "ADMIN", CreatedAt: 1700000000}.toDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != id.Hex() || !u.IsAdmin() || u.CreatedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := (mongoUser{Role: "ROOT"}).toDomain(); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, db, err := Connect(ctx, Config{URI: uri, Database: "readings_test_" + primitive.NewObjectID().Hex()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestRepositories_Mongo(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	readings := NewReadingsRepository(db)
	ctx := context.Background()

	u := &domain.User{Login: "alice", PasswordHash: "h1", Role: domain.RoleUser}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.Create(ctx, &domain.User{Login: "alice", PasswordHash: "h2", Role: domain.RoleUser}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := users.UpdatePassword(ctx, "alice", "h3"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if hash, ok, _ := users.PasswordByLogin(ctx, "alice"); !ok || hash != "h3" {
		t.Fatalf("expected h3, got %q", hash)
	}
	if err := users.UpdatePassword(ctx, "nobody", "h"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	march := domain.Readings{domain.ReadingHeating: 100}
	if err := readings.Add(ctx, "alice", time.March, march); err != nil {
		t.Fatal(err)
	}
	if err := readings.Add(ctx, "alice", time.January, domain.Readings{domain.ReadingHeating: 10}); err != nil {
		t.Fatal(err)
	}
	if err := readings.Add(ctx, "alice", time.March, domain.Readings{"gas": 1}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	history, err := readings.ListByUser(ctx, "alice")
	if err != nil || len(history) != 2 || history[0].Month != time.March || history[1].Month != time.January {
		t.Fatalf("unexpected history %+v err=%v", history, err)
	}
	got, ok, err := readings.FindByMonth(ctx, "alice", time.March)
	if err != nil || !ok || !got.Equal(march) {
		t.Fatalf("unexpected March: %v ok=%v err=%v", got, ok, err)
	}
}

func TestHistorySort(t *testing.T) {
	if len(historySort) != 2 || historySort[0].Key != "submitted_at" || historySort[1].Key != "_id" {
		t.Fatalf("history must sort on submitted_at then _id, got %v", historySort)
	}
}

func TestReadingsRepository_Mongo_OrdersBySubmissionTime(t *testing.T) {
	db := newTestDB(t)
	repo := NewReadingsRepository(db)
	ctx := context.Background()

	// The later submission carries the smaller ObjectID, as happens when
	// two application instances mint ids with skewed clocks.
	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	early := primitive.NewObjectIDFromTimestamp(base.Add(time.Hour))
	late := primitive.NewObjectIDFromTimestamp(base)
	docs := []interface{}{
		readingsDoc{ID: late, Login: "alice", Month: int(time.January), Readings: map[string]float64{domain.ReadingHeating: 10}, SubmittedAt: base.Add(time.Minute)},
		readingsDoc{ID: early, Login: "alice", Month: int(time.March), Readings: map[string]float64{domain.ReadingHeating: 100}, SubmittedAt: base},
	}
	if _, err := db.Collection(readingsCollection).InsertMany(ctx, docs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	history, err := repo.ListByUser(ctx, "alice")
	if err != nil || len(history) != 2 {
		t.Fatalf("unexpected history %+v err=%v", history, err)
	}
	if history[0].Month != time.March || history[1].Month != time.January {
		t.Fatalf("expected March then January, got %v then %v", history[0].Month, history[1].Month)
	}
	if last, _ := history.Last(); last.Month != time.January {
		t.Fatalf("last submission must be January, got %v", last.Month)
	}
}
