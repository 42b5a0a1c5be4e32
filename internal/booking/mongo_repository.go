package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("appointments")}
}

// EnsureIndexes creates the conflict-detection indexes. The compound
// (date, time) index is unique and partial on completed payments, so the
// store itself rejects a second confirmed booking for any (date, slot) pair;
// the resulting duplicate-key error is surfaced as ErrSlotTaken.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"paymentStatus": string(PaymentCompleted)}),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create appointment indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return a, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	var a Appointment
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &a, nil
}

func (r *MongoRepository) FindAll(ctx context.Context) ([]Appointment, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var result []Appointment
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return result, nil
}

func (r *MongoRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	filter := bson.M{"date": date, "paymentStatus": string(PaymentCompleted)}

	cursor, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"time": 1}))
	if err != nil {
		return nil, fmt.Errorf("query booked times: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Time []string `bson:"time"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode booked times: %w", err)
	}

	booked := []string{}
	for _, d := range docs {
		booked = append(booked, d.Time...)
	}
	return booked, nil
}

func (r *MongoRepository) CountConfirmedOverlapping(ctx context.Context, date string, slots []string, excludeID string) (int64, error) {
	filter := bson.M{
		"date":          date,
		"time":          bson.M{"$in": slots},
		"paymentStatus": string(PaymentCompleted),
	}
	if excludeID != "" {
		oid, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return 0, ErrAppointmentNotFound
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count overlapping appointments: %w", err)
	}
	return count, nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, a *Appointment) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":          a.Name,
		"email":         a.Email,
		"contactNumber": a.ContactNumber,
		"area":          a.Area,
		"date":          a.Date,
		"time":          a.Time,
		"remark":        a.Remark,
		"updatedAt":     time.Now().UTC(),
	}}

	var updated Appointment
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAppointmentNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return &updated, nil
}

func (r *MongoRepository) SetAttempted(ctx context.Context, id string, attempted bool) (*Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	update := bson.M{"$set": bson.M{
		"attempted": attempted,
		"updatedAt": time.Now().UTC(),
	}}

	var updated Appointment
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("update attempted flag: %w", err)
	}
	return &updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrAppointmentNotFound
	}

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
