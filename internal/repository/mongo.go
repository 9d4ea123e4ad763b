package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RubachokBoss/mentor-service/internal/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	studentsCollection = "students"
	mentorsCollection  = "mentors"
)

// NewMongoStore connects to MongoDB and ensures a unique index on "id" in both collections.
func NewMongoStore(ctx context.Context, uri, database string, timeout time.Duration, logger zerolog.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	for _, name := range []string{studentsCollection, mentorsCollection} {
		_, err := db.Collection(name).Indexes().CreateOne(connectCtx, mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}

	logger.Info().Str("database", database).Msg("Connected to MongoDB")

	return &Store{
		Students: &mongoStudentRepository{coll: db.Collection(studentsCollection)},
		Mentors:  &mongoMentorRepository{coll: db.Collection(mentorsCollection)},
		Driver:   "mongo",
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

func countByID(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
	return n > 0, err
}

type mongoStudentRepository struct {
	coll *mongo.Collection
}

func (r *mongoStudentRepository) Create(ctx context.Context, student *models.Student) error {
	_, err := r.coll.InsertOne(ctx, student)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *mongoStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *mongoStudentRepository) GetAll(ctx context.Context) ([]models.Student, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoStudentRepository) GetByCurrentMentor(ctx context.Context, mentorID string) ([]models.Student, error) {
	return r.find(ctx, bson.M{"currentTeacherId": mentorID})
}

func (r *mongoStudentRepository) find(ctx context.Context, filter bson.M) ([]models.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	students := make([]models.Student, 0)
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (r *mongoStudentRepository) Update(ctx context.Context, student *models.Student) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": student.ID}, bson.M{"$set": bson.M{
		"name":      student.Name,
		"batchNo":   student.BatchNo,
		"course":    student.Course,
		"updatedAt": student.UpdatedAt,
	}})
	return err
}

func (r *mongoStudentRepository) SetMentorRefs(ctx context.Context, id string, expectedCurrent, current, prev *string) (bool, error) {
	// A null filter value also matches a missing field.
	filter := bson.M{"id": id, "currentTeacherId": expectedCurrent}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"currentTeacherId": current,
		"prevTeacherId":    prev,
		"updatedAt":        time.Now(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoStudentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	return err
}

func (r *mongoStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	return countByID(ctx, r.coll, id)
}

type mongoMentorRepository struct {
	coll *mongo.Collection
}

func (r *mongoMentorRepository) Create(ctx context.Context, mentor *models.Mentor) error {
	doc := *mentor
	doc.Students = mentor.Students.Clone()
	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *mongoMentorRepository) GetByID(ctx context.Context, id string) (*models.Mentor, error) {
	var mentor models.Mentor
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&mentor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	mentor.Students = mentor.Students.Clone()
	return &mentor, nil
}

func (r *mongoMentorRepository) GetAll(ctx context.Context) ([]models.Mentor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}

	mentors := make([]models.Mentor, 0)
	if err := cursor.All(ctx, &mentors); err != nil {
		return nil, err
	}
	for i := range mentors {
		mentors[i].Students = mentors[i].Students.Clone()
	}
	return mentors, nil
}

func (r *mongoMentorRepository) Update(ctx context.Context, mentor *models.Mentor) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": mentor.ID}, bson.M{"$set": bson.M{
		"name":        mentor.Name,
		"course":      mentor.Course,
		"specialized": mentor.Specialized,
		"updatedAt":   mentor.UpdatedAt,
	}})
	return err
}

func (r *mongoMentorRepository) AddStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	filter := bson.M{"id": mentorID, "students": bson.M{"$ne": studentID}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"students": studentID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoMentorRepository) RemoveStudent(ctx context.Context, mentorID, studentID string) (bool, error) {
	filter := bson.M{"id": mentorID, "students": studentID}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"students": studentID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoMentorRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	return err
}

func (r *mongoMentorRepository) Exists(ctx context.Context, id string) (bool, error) {
	return countByID(ctx, r.coll, id)
}
