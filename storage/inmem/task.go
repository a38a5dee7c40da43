package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ablespace/ablespace/core/task"
)

type taskRepository struct {
	db *taskTable
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) CreateTask(_ context.Context, tsk task.Task) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tsk.ID = uuid.New().String()
	repo.db.seq++
	repo.db.table[tsk.ID] = &tsk
	repo.db.order[tsk.ID] = repo.db.seq
	return tsk, nil
}

func (repo *taskRepository) GetTaskByID(_ context.Context, id string) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tsk, ok := repo.db.table[id]; ok {
		return *tsk, nil
	}
	return task.Task{}, task.ErrTaskNotFound
}

func (repo *taskRepository) QueryTasksByCreator(_ context.Context, creatorID string) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, tsk := range repo.db.table {
		if tsk.CreatorID == creatorID {
			tasks = append(tasks, *tsk)
		}
	}
	repo.sortNewestFirst(tasks)
	return tasks, nil
}

func (repo *taskRepository) QueryStudentTasks(_ context.Context, userID, branch string) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, tsk := range repo.db.table {
		if tsk.AssignedToID == userID || (tsk.AssignedToBranch != "" && tsk.AssignedToBranch == branch) {
			tasks = append(tasks, *tsk)
		}
	}
	repo.sortNewestFirst(tasks)
	return tasks, nil
}

func (repo *taskRepository) QueryTasks(_ context.Context, f task.Filter) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, tsk := range repo.db.table {
		if f.Matches(*tsk) {
			tasks = append(tasks, *tsk)
		}
	}
	repo.sortFiltered(tasks, f)
	return tasks, nil
}

func (repo *taskRepository) QueryOverdueTasks(_ context.Context, userID string, now time.Time) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0)
	for _, tsk := range repo.db.table {
		if tsk.AssignedToID != userID && tsk.CreatorID != userID {
			continue
		}
		if tsk.Status == task.StatusCompleted || tsk.DueDate.IsZero() || !tsk.DueDate.Before(now) {
			continue
		}
		tasks = append(tasks, *tsk)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate) })
	return tasks, nil
}

// sortFiltered orders per f. String fields compare lexicographically,
// matching the document store's sort.
func (repo *taskRepository) sortFiltered(tasks []task.Task, f task.Filter) {
	less := func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch f.SortBy {
		case "due_date":
			return a.DueDate.Before(b.DueDate)
		case "priority":
			return a.Priority < b.Priority
		case "status":
			return a.Status < b.Status
		case "title":
			return a.Title < b.Title
		default: // created_at, via insertion sequence
			return repo.db.order[a.ID] < repo.db.order[b.ID]
		}
	}
	if f.Ascending {
		sort.SliceStable(tasks, less)
	} else {
		sort.SliceStable(tasks, func(i, j int) bool { return less(j, i) })
	}
}

func (repo *taskRepository) UpdateTask(_ context.Context, tsk task.Task) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[tsk.ID]; !ok {
		return task.Task{}, task.ErrTaskNotFound
	}
	repo.db.table[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.table, id)
	delete(repo.db.order, id)
	return nil
}

// sortNewestFirst orders by insertion sequence, not CreatedAt, so ties
// within one clock tick stay deterministic.
func (repo *taskRepository) sortNewestFirst(tasks []task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return repo.db.order[tasks[i].ID] > repo.db.order[tasks[j].ID]
	})
}

type teamRepository struct {
	db *teamTable
}

var _ task.TeamRepository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *DB) *teamRepository {
	return &teamRepository{db: db.team}
}

func (repo *teamRepository) CreateTeam(_ context.Context, team task.Team) (task.Team, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	team.ID = uuid.New().String()
	repo.db.table[team.ID] = &team
	return team, nil
}

func (repo *teamRepository) GetTeamByID(_ context.Context, id string) (task.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if team, ok := repo.db.table[id]; ok {
		return *team, nil
	}
	return task.Team{}, task.ErrTeamNotFound
}

func (repo *teamRepository) QueryTeamsByTask(_ context.Context, taskID string) ([]task.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teams := make([]task.Team, 0)
	for _, team := range repo.db.table {
		if team.TaskID == taskID {
			teams = append(teams, *team)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].CreatedAt.Before(teams[j].CreatedAt) })
	return teams, nil
}

func (repo *teamRepository) GetTeamForMember(_ context.Context, taskID, userID string) (task.Team, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, team := range repo.db.table {
		if team.TaskID == taskID && team.HasMember(userID) {
			return *team, nil
		}
	}
	return task.Team{}, task.ErrTeamNotFound
}

func (repo *teamRepository) UpdateTeam(_ context.Context, team task.Team) (task.Team, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[team.ID]; !ok {
		return task.Team{}, task.ErrTeamNotFound
	}
	repo.db.table[team.ID] = &team
	return team, nil
}

func (repo *teamRepository) DeleteTeamsByTask(_ context.Context, taskID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, team := range repo.db.table {
		if team.TaskID == taskID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

type messageRepository struct {
	db *messageTable
}

var _ task.MessageRepository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg task.Message) (task.Message, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	msg.ID = uuid.New().String()
	repo.db.seq++
	repo.db.table[msg.ID] = &msg
	repo.db.order[msg.ID] = repo.db.seq
	return msg, nil
}

func (repo *messageRepository) QueryMessagesByTask(_ context.Context, taskID string) ([]task.Message, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	msgs := make([]task.Message, 0)
	for _, msg := range repo.db.table {
		if msg.TaskID == taskID {
			msgs = append(msgs, *msg)
		}
	}
	// send order; CreatedAt alone can tie within one clock tick
	sort.SliceStable(msgs, func(i, j int) bool {
		return repo.db.order[msgs[i].ID] < repo.db.order[msgs[j].ID]
	})
	return msgs, nil
}

func (repo *messageRepository) DeleteMessagesByTask(_ context.Context, taskID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, msg := range repo.db.table {
		if msg.TaskID == taskID {
			delete(repo.db.table, id)
			delete(repo.db.order, id)
		}
	}
	return nil
}
