package repository

import (
	"context"
	"errors"
	"time"

	"noticeboard/internal/notice/model"
	"noticeboard/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type noticeDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d noticeDocument) toModel() model.Notice {
	return model.Notice{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type MongoRepository struct {
	Coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{Coll: coll}
}

func (r *MongoRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create notices index: %v", err)
	}
	return err
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.Coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *MongoRepository) Insert(ctx context.Context, n *model.Notice) error {
	doc := noticeDocument{
		ID:        primitive.NewObjectID(),
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if _, err := r.Coll.InsertOne(ctx, doc); err != nil {
		logger.Sugar.Errorf("Failed to insert notice: %v", err)
		return err
	}
	n.ID = doc.ID.Hex()
	return nil
}

func (r *MongoRepository) FindAll(ctx context.Context) ([]model.Notice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.Coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		logger.Sugar.Errorf("Failed to list notices: %v", err)
		return nil, err
	}
	var docs []noticeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Sugar.Errorf("Failed to decode notices: %v", err)
		return nil, err
	}

	notices := make([]model.Notice, 0, len(docs))
	for _, d := range docs {
		notices = append(notices, d.toModel())
	}
	return notices, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (model.Notice, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Notice{}, ErrNotFound
	}
	var doc noticeDocument
	err = r.Coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	return r.result(doc, err, "find", id)
}

func (r *MongoRepository) UpdateByID(ctx context.Context, id, title, content string, updatedAt time.Time) (model.Notice, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Notice{}, ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"title":     title,
		"content":   content,
		"updatedAt": updatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc noticeDocument
	err = r.Coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc)
	return r.result(doc, err, "update", id)
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id string) (model.Notice, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Notice{}, ErrNotFound
	}
	var doc noticeDocument
	err = r.Coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	return r.result(doc, err, "delete", id)
}

func (r *MongoRepository) result(doc noticeDocument, err error, op, id string) (model.Notice, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Notice{}, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to %s notice %s: %v", op, id, err)
		return model.Notice{}, err
	}
	return doc.toModel(), nil
}
