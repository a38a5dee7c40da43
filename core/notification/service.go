package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotificationsByUser returns a user's notifications, newest first.
		QueryNotificationsByUser(ctx context.Context, userID string) ([]Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		MarkRead(ctx context.Context, id string) (Notification, error)
		MarkAllRead(ctx context.Context, userID string) error
	}

	// Pusher delivers a notification to the recipient's live session, if
	// any. Delivery is best-effort; a disconnected recipient misses it.
	Pusher interface {
		PushNotification(userID string, n Notification)
	}

	Service struct {
		repo   Repository
		pusher Pusher
	}
)

func NewService(repo Repository, pusher Pusher) *Service {
	return &Service{repo: repo, pusher: pusher}
}

// TaskAssigned records a notification for the newly assigned user and
// pushes it to their session. Implements task.Notifier.
func (svc *Service) TaskAssigned(ctx context.Context, userID, taskID, title string) error {
	n, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		TaskID:    taskID,
		Message:   fmt.Sprintf("You have been assigned to task: %s", title),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	svc.pusher.PushNotification(userID, n)
	return nil
}

func (svc *Service) Query(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUser(ctx, userID)
}

// MarkRead marks one of userID's notifications as read. A notification
// belonging to someone else is indistinguishable from a missing one.
func (svc *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return svc.repo.MarkRead(ctx, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) error {
	return svc.repo.MarkAllRead(ctx, userID)
}
