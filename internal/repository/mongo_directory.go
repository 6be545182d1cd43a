package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoUsersCollection   = "users"
	mongoCoursesCollection = "courses"
)

type userDocument struct {
	ID        string    `bson:"id"`
	Email     string    `bson:"email"`
	Name      string    `bson:"name"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d userDocument) toDomain() domain.User {
	status := domain.UserStatus(d.Status)
	if status == "" {
		status = domain.UserStatusActive
	}
	return domain.User{ID: d.ID, Email: d.Email, Name: d.Name, Status: status, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type courseDocument struct {
	ID        string    `bson:"id"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoUserRepository reads and blocks accounts kept in a MongoDB users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &MongoUserRepository{coll: db.Collection(mongoUsersCollection)}
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = ErrUserNotFound
	}
	observability.RecordRepositoryOperation(ctx, "user", "find_by_id", outcomeFor(err, ErrUserNotFound))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	u := doc.toDomain()
	return &u, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}
	user.CreatedAt, user.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID: user.ID, Email: user.Email, Name: user.Name, Status: string(user.Status),
		CreatedAt: now, UpdatedAt: now,
	})
	observability.RecordRepositoryOperation(ctx, "user", "create", outcomeFor(err, nil))
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.ID, err)
	}
	return nil
}

func (r *MongoUserRepository) BlockUsers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"id": bson.M{"$in": ids}, "status": bson.M{"$ne": string(domain.UserStatusBlocked)}},
		bson.M{"$set": bson.M{"status": string(domain.UserStatusBlocked), "updatedAt": time.Now().UTC()}},
	)
	observability.RecordRepositoryOperation(ctx, "user", "block_users", outcomeFor(err, nil))
	if err != nil {
		return 0, fmt.Errorf("block users: %w", err)
	}
	return res.ModifiedCount, nil
}

type MongoCourseRepository struct {
	coll *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) CourseRepository {
	return &MongoCourseRepository{coll: db.Collection(mongoCoursesCollection)}
}

func (r *MongoCourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Course, error) {
	out := make(map[string]domain.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"id": 1, "title": 1, "createdAt": 1, "updatedAt": 1})
	cur, err := r.coll.Find(ctx, bson.M{"id": bson.M{"$in": ids}}, opts)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "course", "find_by_ids", "error")
		return nil, fmt.Errorf("find courses: %w", err)
	}
	defer cur.Close(ctx)

	var docs []courseDocument
	if err := cur.All(ctx, &docs); err != nil {
		observability.RecordRepositoryOperation(ctx, "course", "find_by_ids", "error")
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	for _, d := range docs {
		out[d.ID] = domain.Course{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
	}
	observability.RecordRepositoryOperation(ctx, "course", "find_by_ids", "success")
	return out, nil
}

func (r *MongoCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, courseDocument{ID: course.ID, Title: course.Title, CreatedAt: now, UpdatedAt: now})
	observability.RecordRepositoryOperation(ctx, "course", "create", outcomeFor(err, nil))
	if err != nil {
		return fmt.Errorf("insert course %s: %w", course.ID, err)
	}
	return nil
}

// EnsureMongoIndexes creates the unique id indexes both directory collections rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{mongoUsersCollection, mongoCoursesCollection} {
		_, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create %s id index: %w", name, err)
		}
	}
	return nil
}
