package notification

import "time"

// Notification is an alert surfaced to a student when a teacher assigns
// them a task. It is created exactly once per assignment change and only
// ever transitions isRead: false -> true.
type Notification struct {
	ID      string `json:"id" bson:"_id,omitempty"`
	UserID  string `json:"user_id" bson:"user_id"` // recipient
	TaskID  string `json:"task_id" bson:"task_id"`
	Message string `json:"message" bson:"message"`
	IsRead  bool   `json:"is_read" bson:"is_read"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
}
