// Package mongorepos implements the domain repositories on MongoDB.
package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ablespace/ablespace/core"
)

// collection names
const (
	colUsers         = "users"
	colTasks         = "tasks"
	colTeams         = "teams"
	colMessages      = "messages"
	colNotifications = "notifications"
)

const connectTimeout = 10 * time.Second

// Open connects to MongoDB, pings it and ensures the indexes the
// repositories rely on.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	db := client.Database(conf.Database.Name)
	if err = ensureIndexes(ctx, db); err != nil {
		return nil, errors.Wrap(err, "creating indexes")
	}
	return db, nil
}

// fatalDBErr wraps a driver failure, promoting a disconnected client
// into a shutdown error: the pool will not come back without a restart,
// so the API should stop serving instead of failing every request.
func fatalDBErr(err error, msg string) error {
	if errors.Cause(err) == mongo.ErrClientDisconnected {
		return core.NewShutdownError(err, msg)
	}
	return errors.Wrap(err, msg)
}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	uniqueSparse := options.Index().SetUnique(true).SetSparse(true)

	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "roll_number", Value: 1}}, Options: uniqueSparse},
		},
		colTasks: {
			{Keys: bson.D{{Key: "creator_id", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to_id", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to_branch", Value: 1}}},
		},
		colTeams: {
			{Keys: bson.D{{Key: "task_id", Value: 1}}},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		colMessages: {
			{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrap(err, col)
		}
	}
	return nil
}
