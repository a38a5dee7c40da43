package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ablespace/ablespace/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = uuid.New().String()
	repo.db.seq++
	repo.db.table[n.ID] = &n
	repo.db.order[n.ID] = repo.db.seq
	return n, nil
}

func (repo *notificationRepository) QueryNotificationsByUser(_ context.Context, userID string) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ns := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if n.UserID == userID {
			ns = append(ns, *n)
		}
	}
	sort.SliceStable(ns, func(i, j int) bool {
		return repo.db.order[ns[i].ID] > repo.db.order[ns[j].ID] // newest first
	})
	return ns, nil
}

func (repo *notificationRepository) GetNotificationByID(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) MarkRead(_ context.Context, id string) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.IsRead = true
	return *n, nil
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.table {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}
