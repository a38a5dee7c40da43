package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/user"
)

// Priorities
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Statuses. These four values form an unordered enum: any authorized
// actor may set any status in any order.
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusReview     = "Review"
	StatusCompleted  = "Completed"
)

// Assignment types
const (
	AssignIndividual = "individual"
	AssignBranch     = "branch"
	AssignTeam       = "team"
)

// TeamMember is a denormalized snapshot of a student stored on the Task
// at creation time. The Team collection is the live membership record;
// the two can drift apart once students start joining teams.
type TeamMember struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	RollNumber string `json:"roll_number,omitempty" bson:"roll_number,omitempty"`
	Email      string `json:"email,omitempty" bson:"email,omitempty"`
}

type Task struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	DueDate     time.Time `json:"due_date,omitempty" bson:"due_date,omitempty"`
	Priority    string    `json:"priority" bson:"priority"`
	Status      string    `json:"status" bson:"status"`

	CreatorID string `json:"creator_id" bson:"creator_id"` // owning teacher; immutable

	AssignedToID     string `json:"assigned_to_id,omitempty" bson:"assigned_to_id,omitempty"`
	AssignedToBranch string `json:"assigned_to_branch,omitempty" bson:"assigned_to_branch,omitempty"`
	AssignmentType   string `json:"assignment_type,omitempty" bson:"assignment_type,omitempty"`

	AssignedStudentName string `json:"assigned_student_name,omitempty" bson:"assigned_student_name,omitempty"`
	AssignedStudentRoll string `json:"assigned_student_roll,omitempty" bson:"assigned_student_roll,omitempty"`

	TeamMembers []TeamMember `json:"team_members,omitempty" bson:"team_members,omitempty"`
	MinTeamSize int          `json:"min_team_size,omitempty" bson:"min_team_size,omitempty"`
	MaxTeamSize int          `json:"max_team_size,omitempty" bson:"max_team_size,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

// OwnedBy reports whether u is the teacher who created the task.
func (t Task) OwnedBy(u user.User) bool {
	return t.CreatorID == u.ID
}

// AssignedTo reports whether u is the task's individual assignee or
// belongs to its assigned branch. A branch-matching student counts as
// assigned even on team tasks they never joined a team for.
func (t Task) AssignedTo(u user.User) bool {
	return (t.AssignedToID != "" && t.AssignedToID == u.ID) ||
		(t.AssignedToBranch != "" && t.AssignedToBranch == u.Branch)
}

// ViewableBy governs team listing, messaging and message history;
// symmetric for the owning teacher and assigned students.
func (t Task) ViewableBy(u user.User) bool {
	return t.AssignedTo(u) || t.OwnedBy(u)
}

// SharedWith reports whether u created the task or is its direct
// individual assignee. Unlike AssignedTo, a branch match does not
// count: a whole branch cannot edit a shared task.
func (t Task) SharedWith(u user.User) bool {
	return t.OwnedBy(u) || (t.AssignedToID != "" && t.AssignedToID == u.ID)
}

type Team struct {
	ID       string   `json:"id" bson:"_id,omitempty"`
	TaskID   string   `json:"task_id" bson:"task_id"`
	Members  []string `json:"members" bson:"members"` // user ids, join order
	TeamName string   `json:"team_name,omitempty" bson:"team_name,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

// HasMember reports whether userID already belongs to the team.
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	TaskID   string `json:"task_id" bson:"task_id"`
	SenderID string `json:"sender_id" bson:"sender_id"`
	Content  string `json:"content" bson:"content"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"` // UTC
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title            string       `json:"title" validate:"required,max=100"`
	Description      string       `json:"description"`
	DueDate          time.Time    `json:"due_date"`
	Priority         string       `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Status           string       `json:"status" validate:"omitempty,oneof='To Do' 'In Progress' Review Completed"`
	AssignedToID     string       `json:"assigned_to_id"`
	AssignedToBranch string       `json:"assigned_to_branch" validate:"omitempty,branch"`
	AssignmentType   string       `json:"assignment_type" validate:"omitempty,oneof=individual branch team"`

	// client-supplied snapshot of the individual assignee
	AssignedStudentName string `json:"assigned_student_name"`
	AssignedStudentRoll string `json:"assigned_student_roll"`

	TeamMembers []TeamMember `json:"team_members"`
	MinTeamSize int          `json:"min_team_size" validate:"omitempty,min=1"`
	MaxTeamSize int          `json:"max_team_size" validate:"omitempty,min=1,gtefield=MinTeamSize"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an
// existing Task. Zero-valued fields are left untouched.
type UpdateTask struct {
	Title            string       `json:"title" validate:"omitempty,max=100"`
	Description      string       `json:"description"`
	DueDate          time.Time    `json:"due_date"`
	Priority         string       `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Status           string       `json:"status" validate:"omitempty,oneof='To Do' 'In Progress' Review Completed"`
	AssignedToID     string       `json:"assigned_to_id"`
	AssignedToBranch string       `json:"assigned_to_branch" validate:"omitempty,branch"`
	AssignmentType   string       `json:"assignment_type" validate:"omitempty,oneof=individual branch team"`

	AssignedStudentName string `json:"assigned_student_name"`
	AssignedStudentRoll string `json:"assigned_student_roll"`

	TeamMembers []TeamMember `json:"team_members"`
	MinTeamSize int          `json:"min_team_size" validate:"omitempty,min=1"`
	MaxTeamSize int          `json:"max_team_size" validate:"omitempty,min=1"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = core.CleanString(ut.Description)
	return validate.Struct(ut)
}

// AssignTask patches the assignment target of a Task. At least one field
// must be set; setting one does not clear the other.
type AssignTask struct {
	AssignedToID     string `json:"assigned_to_id"`
	AssignedToBranch string `json:"assigned_to_branch" validate:"omitempty,branch"`

	AssignedStudentName string `json:"assigned_student_name"`
	AssignedStudentRoll string `json:"assigned_student_roll"`
}

func (at *AssignTask) Validate(validate *validator.Validate) error {
	if err := validate.Struct(at); err != nil {
		return err
	}
	if at.AssignedToID == "" && at.AssignedToBranch == "" {
		return core.NewValidationError(nil, core.FieldError{
			Field: "assigned_to_id",
			Error: "either assigned_to_id or assigned_to_branch is required",
		})
	}
	return nil
}

// Filter narrows and orders a personal task listing. Zero-valued
// fields match everything.
type Filter struct {
	Status     string
	Priority   string
	CreatorID  string
	AssigneeID string

	SortBy    string // created_at (default) | due_date | priority | status | title
	Ascending bool
}

// TaskQuery is the personal listing filter as bound from the query
// string. "all" is accepted as a synonym for no filter.
type TaskQuery struct {
	Status     string `query:"status" validate:"omitempty,oneof=all 'To Do' 'In Progress' Review Completed"`
	Priority   string `query:"priority" validate:"omitempty,oneof=all Low Medium High Urgent"`
	FilterType string `query:"filter_type" validate:"omitempty,oneof=assigned created"`
	SortBy     string `query:"sort_by" validate:"omitempty,oneof=created_at due_date priority status title"`
	SortOrder  string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

func (tq *TaskQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(tq)
}

// Filter converts the query into a repository filter, scoping the
// assigned/created filter types to userID.
func (tq TaskQuery) Filter(userID string) Filter {
	f := Filter{SortBy: tq.SortBy, Ascending: tq.SortOrder == "asc"}
	if tq.Status != "" && tq.Status != "all" {
		f.Status = tq.Status
	}
	if tq.Priority != "" && tq.Priority != "all" {
		f.Priority = tq.Priority
	}
	switch tq.FilterType {
	case "assigned":
		f.AssigneeID = userID
	case "created":
		f.CreatorID = userID
	}
	return f
}

// Matches reports whether tsk passes the filter fields; ordering is
// the repository's concern.
func (f Filter) Matches(tsk Task) bool {
	if f.Status != "" && tsk.Status != f.Status {
		return false
	}
	if f.Priority != "" && tsk.Priority != f.Priority {
		return false
	}
	if f.CreatorID != "" && tsk.CreatorID != f.CreatorID {
		return false
	}
	if f.AssigneeID != "" && tsk.AssignedToID != f.AssigneeID {
		return false
	}
	return true
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof='To Do' 'In Progress' Review Completed"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

type NewTeam struct {
	TaskID   string `json:"task_id" validate:"required"`
	TeamName string `json:"team_name" validate:"omitempty,max=50"`
}

func (nt *NewTeam) Validate(validate *validator.Validate) error {
	nt.TeamName = core.CleanString(nt.TeamName)
	return validate.Struct(nt)
}

type NewMessage struct {
	TaskID  string `json:"task_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Content = core.CleanString(nm.Content)
	return validate.Struct(nm)
}
