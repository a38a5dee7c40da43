package mongorepos

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ablespace/ablespace/core/task"
)

type taskRepository struct {
	col *mongo.Collection
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *mongo.Database) *taskRepository {
	return &taskRepository{col: db.Collection(colTasks)}
}

func (repo *taskRepository) CreateTask(ctx context.Context, tsk task.Task) (task.Task, error) {
	tsk.ID = primitive.NewObjectID().Hex()
	if _, err := repo.col.InsertOne(ctx, tsk); err != nil {
		return task.Task{}, fatalDBErr(err, "inserting task")
	}
	return tsk, nil
}

func (repo *taskRepository) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	var tsk task.Task
	if err := repo.col.FindOne(ctx, bson.M{"_id": id}).Decode(&tsk); err != nil {
		if err == mongo.ErrNoDocuments {
			return task.Task{}, task.ErrTaskNotFound
		}
		return task.Task{}, fatalDBErr(err, "finding task")
	}
	return tsk, nil
}

func (repo *taskRepository) QueryTasksByCreator(ctx context.Context, creatorID string) ([]task.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return repo.query(ctx, bson.M{"creator_id": creatorID}, opts)
}

func (repo *taskRepository) QueryStudentTasks(ctx context.Context, userID, branch string) ([]task.Task, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"assigned_to_id": userID},
		bson.M{"assigned_to_branch": branch},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return repo.query(ctx, filter, opts)
}

// taskSortFields whitelists the sortable columns of the personal
// listing; anything else falls back to created_at.
var taskSortFields = map[string]string{
	"created_at": "created_at",
	"due_date":   "due_date",
	"priority":   "priority",
	"status":     "status",
	"title":      "title",
}

func (repo *taskRepository) QueryTasks(ctx context.Context, f task.Filter) ([]task.Task, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.CreatorID != "" {
		filter["creator_id"] = f.CreatorID
	}
	if f.AssigneeID != "" {
		filter["assigned_to_id"] = f.AssigneeID
	}

	field, ok := taskSortFields[f.SortBy]
	if !ok {
		field = "created_at"
	}
	order := -1
	if f.Ascending {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: order}})
	return repo.query(ctx, filter, opts)
}

func (repo *taskRepository) QueryOverdueTasks(ctx context.Context, userID string, now time.Time) ([]task.Task, error) {
	filter := bson.M{
		"due_date": bson.M{"$lt": now},
		"status":   bson.M{"$ne": task.StatusCompleted},
		"$or": bson.A{
			bson.M{"assigned_to_id": userID},
			bson.M{"creator_id": userID},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	return repo.query(ctx, filter, opts)
}

func (repo *taskRepository) query(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]task.Task, error) {
	cursor, err := repo.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fatalDBErr(err, "querying tasks")
	}
	tasks := make([]task.Task, 0)
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, fatalDBErr(err, "decoding tasks")
	}
	return tasks, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, tsk task.Task) (task.Task, error) {
	res, err := repo.col.ReplaceOne(ctx, bson.M{"_id": tsk.ID}, tsk)
	if err != nil {
		return task.Task{}, fatalDBErr(err, "updating task")
	}
	if res.MatchedCount == 0 {
		return task.Task{}, task.ErrTaskNotFound
	}
	return tsk, nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	_, err := repo.col.DeleteOne(ctx, bson.M{"_id": id})
	return fatalDBErr(err, "deleting task")
}

type teamRepository struct {
	col *mongo.Collection
}

var _ task.TeamRepository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *mongo.Database) *teamRepository {
	return &teamRepository{col: db.Collection(colTeams)}
}

func (repo *teamRepository) CreateTeam(ctx context.Context, team task.Team) (task.Team, error) {
	team.ID = primitive.NewObjectID().Hex()
	if _, err := repo.col.InsertOne(ctx, team); err != nil {
		return task.Team{}, fatalDBErr(err, "inserting team")
	}
	return team, nil
}

func (repo *teamRepository) GetTeamByID(ctx context.Context, id string) (task.Team, error) {
	return repo.getOne(ctx, bson.M{"_id": id})
}

func (repo *teamRepository) GetTeamForMember(ctx context.Context, taskID, userID string) (task.Team, error) {
	return repo.getOne(ctx, bson.M{"task_id": taskID, "members": userID})
}

func (repo *teamRepository) getOne(ctx context.Context, filter bson.M) (task.Team, error) {
	var team task.Team
	if err := repo.col.FindOne(ctx, filter).Decode(&team); err != nil {
		if err == mongo.ErrNoDocuments {
			return task.Team{}, task.ErrTeamNotFound
		}
		return task.Team{}, fatalDBErr(err, "finding team")
	}
	return team, nil
}

func (repo *teamRepository) QueryTeamsByTask(ctx context.Context, taskID string) ([]task.Team, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := repo.col.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, fatalDBErr(err, "querying teams")
	}
	teams := make([]task.Team, 0)
	if err = cursor.All(ctx, &teams); err != nil {
		return nil, fatalDBErr(err, "decoding teams")
	}
	return teams, nil
}

func (repo *teamRepository) UpdateTeam(ctx context.Context, team task.Team) (task.Team, error) {
	res, err := repo.col.ReplaceOne(ctx, bson.M{"_id": team.ID}, team)
	if err != nil {
		return task.Team{}, fatalDBErr(err, "updating team")
	}
	if res.MatchedCount == 0 {
		return task.Team{}, task.ErrTeamNotFound
	}
	return team, nil
}

func (repo *teamRepository) DeleteTeamsByTask(ctx context.Context, taskID string) error {
	_, err := repo.col.DeleteMany(ctx, bson.M{"task_id": taskID})
	return fatalDBErr(err, "deleting teams")
}

type messageRepository struct {
	col *mongo.Collection
}

var _ task.MessageRepository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *mongo.Database) *messageRepository {
	return &messageRepository{col: db.Collection(colMessages)}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg task.Message) (task.Message, error) {
	msg.ID = primitive.NewObjectID().Hex()
	if _, err := repo.col.InsertOne(ctx, msg); err != nil {
		return task.Message{}, fatalDBErr(err, "inserting message")
	}
	return msg, nil
}

func (repo *messageRepository) QueryMessagesByTask(ctx context.Context, taskID string) ([]task.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := repo.col.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, fatalDBErr(err, "querying messages")
	}
	msgs := make([]task.Message, 0)
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, fatalDBErr(err, "decoding messages")
	}
	return msgs, nil
}

func (repo *messageRepository) DeleteMessagesByTask(ctx context.Context, taskID string) error {
	_, err := repo.col.DeleteMany(ctx, bson.M{"task_id": taskID})
	return fatalDBErr(err, "deleting messages")
}
