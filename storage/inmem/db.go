// Package inmemdb provides in-memory repository implementations, used by
// tests and for running the API without a database.
package inmemdb

import (
	"sync"

	"github.com/ablespace/ablespace/core/notification"
	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	taskTable struct {
		mutex sync.RWMutex
		table map[string]*task.Task
		seq   int
		order map[string]int // task id -> insertion order
	}

	teamTable struct {
		mutex sync.RWMutex
		table map[string]*task.Team
	}

	messageTable struct {
		mutex sync.RWMutex
		table map[string]*task.Message
		seq   int
		order map[string]int // message id -> insertion order
	}

	notificationTable struct {
		mutex sync.RWMutex
		table map[string]*notification.Notification
		seq   int
		order map[string]int
	}

	DB struct {
		user         *userTable
		task         *taskTable
		team         *teamTable
		message      *messageTable
		notification *notificationTable
	}
)

func NewDB() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		task:         &taskTable{table: make(map[string]*task.Task), order: make(map[string]int)},
		team:         &teamTable{table: make(map[string]*task.Team)},
		message:      &messageTable{table: make(map[string]*task.Message), order: make(map[string]int)},
		notification: &notificationTable{table: make(map[string]*notification.Notification), order: make(map[string]int)},
	}
}
