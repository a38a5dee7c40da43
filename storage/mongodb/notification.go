package mongorepos

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ablespace/ablespace/core/notification"
)

type notificationRepository struct {
	col *mongo.Collection
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *mongo.Database) *notificationRepository {
	return &notificationRepository{col: db.Collection(colNotifications)}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = primitive.NewObjectID().Hex()
	if _, err := repo.col.InsertOne(ctx, n); err != nil {
		return notification.Notification{}, fatalDBErr(err, "inserting notification")
	}
	return n, nil
}

func (repo *notificationRepository) QueryNotificationsByUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := repo.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fatalDBErr(err, "querying notifications")
	}
	ns := make([]notification.Notification, 0)
	if err = cursor.All(ctx, &ns); err != nil {
		return nil, fatalDBErr(err, "decoding notifications")
	}
	return ns, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var n notification.Notification
	if err := repo.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, fatalDBErr(err, "finding notification")
	}
	return n, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	res := repo.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var n notification.Notification
	if err := res.Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, fatalDBErr(err, "marking notification read")
	}
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := repo.col.UpdateMany(
		ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	return fatalDBErr(err, "marking notifications read")
}
