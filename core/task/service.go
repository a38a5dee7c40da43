package task

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/user"
)

var (
	// errors
	ErrTaskNotFound   = errors.New("task not found")
	ErrTeamNotFound   = errors.New("team not found")
	ErrNotOwner       = errors.New("you do not own this task")
	ErrNotAssigned    = errors.New("you are not assigned to this task")
	ErrNotParticipant = errors.New("you cannot modify this task")

	// conflicts, surfaced to clients as validation errors
	ErrAlreadyInTeam = errors.New("you are already in a team for this task")
	ErrAlreadyMember = errors.New("you are already in this team")
	ErrTeamFull      = errors.New("team is full")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, tsk Task) (Task, error)
		GetTaskByID(ctx context.Context, id string) (Task, error)
		// QueryTasksByCreator returns a teacher's tasks, newest first.
		QueryTasksByCreator(ctx context.Context, creatorID string) ([]Task, error)
		// QueryStudentTasks returns the union of tasks assigned to the
		// student individually and tasks assigned to their branch, deduplicated.
		QueryStudentTasks(ctx context.Context, userID, branch string) ([]Task, error)
		// QueryTasks returns the tasks matching f, ordered per f.
		QueryTasks(ctx context.Context, f Filter) ([]Task, error)
		// QueryOverdueTasks returns userID's created or individually
		// assigned tasks due before now and not completed, soonest first.
		QueryOverdueTasks(ctx context.Context, userID string, now time.Time) ([]Task, error)
		UpdateTask(ctx context.Context, tsk Task) (Task, error)
		DeleteTask(ctx context.Context, id string) error
	}

	TeamRepository interface {
		CreateTeam(ctx context.Context, team Team) (Team, error)
		GetTeamByID(ctx context.Context, id string) (Team, error)
		QueryTeamsByTask(ctx context.Context, taskID string) ([]Team, error)
		// GetTeamForMember returns the team userID belongs to for taskID,
		// or ErrTeamNotFound.
		GetTeamForMember(ctx context.Context, taskID, userID string) (Team, error)
		UpdateTeam(ctx context.Context, team Team) (Team, error)
		DeleteTeamsByTask(ctx context.Context, taskID string) error
	}

	MessageRepository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessagesByTask returns messages in ascending timestamp order.
		QueryMessagesByTask(ctx context.Context, taskID string) ([]Message, error)
		DeleteMessagesByTask(ctx context.Context, taskID string) error
	}

	// Notifier records an assignment notification for a user and pushes
	// it to their live session, if any.
	Notifier interface {
		TaskAssigned(ctx context.Context, userID, taskID, title string) error
	}

	Service struct {
		repo     Repository
		teamRepo TeamRepository
		msgRepo  MessageRepository
		notifier Notifier
	}
)

func NewService(repo Repository, teamRepo TeamRepository, msgRepo MessageRepository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		teamRepo: teamRepo,
		msgRepo:  msgRepo,
		notifier: notifier,
	}
}

func (svc *Service) Create(ctx context.Context, actor user.User, nt NewTask) (Task, error) {
	now := time.Now().UTC()
	tsk := Task{
		Title:               nt.Title,
		Description:         nt.Description,
		DueDate:             nt.DueDate,
		Priority:            nt.Priority,
		Status:              nt.Status,
		CreatorID:           actor.ID,
		AssignedToID:        nt.AssignedToID,
		AssignedToBranch:    nt.AssignedToBranch,
		AssignmentType:      nt.AssignmentType,
		AssignedStudentName: nt.AssignedStudentName,
		AssignedStudentRoll: nt.AssignedStudentRoll,
		TeamMembers:         nt.TeamMembers,
		MinTeamSize:         nt.MinTeamSize,
		MaxTeamSize:         nt.MaxTeamSize,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if tsk.Priority == "" {
		tsk.Priority = PriorityMedium
	}
	if tsk.Status == "" {
		tsk.Status = StatusToDo
	}
	if tsk.MinTeamSize == 0 {
		tsk.MinTeamSize = 1
	}
	if tsk.MaxTeamSize == 0 {
		tsk.MaxTeamSize = 1
	}

	// no notification on creation; only a later assignment change notifies
	return svc.repo.CreateTask(ctx, tsk)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

// TeacherTasks returns the tasks created by the acting teacher, newest first.
func (svc *Service) TeacherTasks(ctx context.Context, actor user.User) ([]Task, error) {
	return svc.repo.QueryTasksByCreator(ctx, actor.ID)
}

// StudentTasks returns the tasks the acting student can see: individually
// assigned ones plus those assigned to their branch.
func (svc *Service) StudentTasks(ctx context.Context, actor user.User) ([]Task, error) {
	return svc.repo.QueryStudentTasks(ctx, actor.ID, actor.Branch)
}

// Tasks is the personal listing: every task matching f, regardless of
// who created it, filtered and ordered per f.
func (svc *Service) Tasks(ctx context.Context, f Filter) ([]Task, error) {
	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	return svc.repo.QueryTasks(ctx, f)
}

// OverdueTasks returns the actor's created or individually assigned
// tasks whose due date has passed without completion, soonest due first.
func (svc *Service) OverdueTasks(ctx context.Context, actor user.User) ([]Task, error) {
	return svc.repo.QueryOverdueTasks(ctx, actor.ID, time.Now().UTC())
}

// Assign patches the assignment target of an owned task. A change of the
// individual assignee creates exactly one notification for the new assignee.
func (svc *Service) Assign(ctx context.Context, actor user.User, taskID string, at AssignTask) (Task, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !tsk.OwnedBy(actor) {
		return Task{}, ErrNotOwner
	}

	prevAssignee := tsk.AssignedToID
	if at.AssignedToID != "" {
		tsk.AssignedToID = at.AssignedToID
	}
	if at.AssignedToBranch != "" {
		tsk.AssignedToBranch = at.AssignedToBranch
	}
	if at.AssignedStudentName != "" {
		tsk.AssignedStudentName = at.AssignedStudentName
	}
	if at.AssignedStudentRoll != "" {
		tsk.AssignedStudentRoll = at.AssignedStudentRoll
	}
	tsk.UpdatedAt = time.Now().UTC()

	if tsk, err = svc.repo.UpdateTask(ctx, tsk); err != nil {
		return Task{}, err
	}
	if err = svc.notifyIfReassigned(ctx, prevAssignee, tsk); err != nil {
		return Task{}, err
	}
	return tsk, nil
}

// Update applies a general patch to an owned task. Like Assign, a change
// of the individual assignee triggers a single notification.
func (svc *Service) Update(ctx context.Context, actor user.User, taskID string, ut UpdateTask) (Task, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !tsk.OwnedBy(actor) {
		return Task{}, ErrNotOwner
	}
	return svc.saveUpdate(ctx, tsk, ut)
}

// UpdateShared is the personal-surface counterpart of Update: the
// creator or the individual assignee may patch the task, with the same
// notification on an assignee change.
func (svc *Service) UpdateShared(ctx context.Context, actor user.User, taskID string, ut UpdateTask) (Task, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !tsk.SharedWith(actor) {
		return Task{}, ErrNotParticipant
	}
	return svc.saveUpdate(ctx, tsk, ut)
}

func (svc *Service) saveUpdate(ctx context.Context, tsk Task, ut UpdateTask) (Task, error) {
	prevAssignee := tsk.AssignedToID
	if ut.Title != "" {
		tsk.Title = ut.Title
	}
	if ut.Description != "" {
		tsk.Description = ut.Description
	}
	if !ut.DueDate.IsZero() {
		tsk.DueDate = ut.DueDate
	}
	if ut.Priority != "" {
		tsk.Priority = ut.Priority
	}
	if ut.Status != "" {
		tsk.Status = ut.Status
	}
	if ut.AssignedToID != "" {
		tsk.AssignedToID = ut.AssignedToID
	}
	if ut.AssignedToBranch != "" {
		tsk.AssignedToBranch = ut.AssignedToBranch
	}
	if ut.AssignmentType != "" {
		tsk.AssignmentType = ut.AssignmentType
	}
	if ut.AssignedStudentName != "" {
		tsk.AssignedStudentName = ut.AssignedStudentName
	}
	if ut.AssignedStudentRoll != "" {
		tsk.AssignedStudentRoll = ut.AssignedStudentRoll
	}
	if ut.TeamMembers != nil {
		tsk.TeamMembers = ut.TeamMembers
	}
	if ut.MinTeamSize != 0 {
		tsk.MinTeamSize = ut.MinTeamSize
	}
	if ut.MaxTeamSize != 0 {
		tsk.MaxTeamSize = ut.MaxTeamSize
	}
	tsk.UpdatedAt = time.Now().UTC()

	tsk, err := svc.repo.UpdateTask(ctx, tsk)
	if err != nil {
		return Task{}, err
	}
	if err = svc.notifyIfReassigned(ctx, prevAssignee, tsk); err != nil {
		return Task{}, err
	}
	return tsk, nil
}

func (svc *Service) notifyIfReassigned(ctx context.Context, prevAssignee string, tsk Task) error {
	if tsk.AssignedToID == "" || tsk.AssignedToID == prevAssignee {
		return nil
	}
	return pkgerrors.Wrap(
		svc.notifier.TaskAssigned(ctx, tsk.AssignedToID, tsk.ID, tsk.Title),
		"notifying assignee",
	)
}

// Delete removes an owned task along with all its teams and messages.
// The three deletes are independent store operations; a failure partway
// through leaves partial state.
func (svc *Service) Delete(ctx context.Context, actor user.User, taskID string) error {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !tsk.OwnedBy(actor) {
		return ErrNotOwner
	}

	if err = svc.teamRepo.DeleteTeamsByTask(ctx, taskID); err != nil {
		return pkgerrors.Wrap(err, "deleting task teams")
	}
	if err = svc.msgRepo.DeleteMessagesByTask(ctx, taskID); err != nil {
		return pkgerrors.Wrap(err, "deleting task messages")
	}
	return svc.repo.DeleteTask(ctx, taskID)
}

// UpdateStatus lets an assigned student set the task status. Only the
// status field is mutable through this path, and no ordering between the
// four values is enforced.
func (svc *Service) UpdateStatus(ctx context.Context, actor user.User, taskID, status string) (Task, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !tsk.AssignedTo(actor) {
		return Task{}, ErrNotAssigned
	}

	tsk.Status = status
	tsk.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTask(ctx, tsk)
}

// CreateTeam forms a new team for a task with the acting student as its
// first member. A student can belong to at most one team per task.
func (svc *Service) CreateTeam(ctx context.Context, actor user.User, nt NewTeam) (Team, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, nt.TaskID)
	if err != nil {
		return Team{}, err
	}
	if !tsk.AssignedTo(actor) {
		return Team{}, ErrNotAssigned
	}

	if _, err = svc.teamRepo.GetTeamForMember(ctx, nt.TaskID, actor.ID); err == nil {
		return Team{}, core.NewValidationError(ErrAlreadyInTeam)
	} else if err != ErrTeamNotFound {
		return Team{}, err
	}

	now := time.Now().UTC()
	return svc.teamRepo.CreateTeam(ctx, Team{
		TaskID:    nt.TaskID,
		TeamName:  nt.TeamName,
		Members:   []string{actor.ID},
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// JoinTeam appends the acting student to an existing team, preserving
// join order. Fails if the team is at the task's max size or the student
// is already a member.
func (svc *Service) JoinTeam(ctx context.Context, actor user.User, teamID string) (Team, error) {
	team, err := svc.teamRepo.GetTeamByID(ctx, teamID)
	if err != nil {
		return Team{}, err
	}
	tsk, err := svc.repo.GetTaskByID(ctx, team.TaskID)
	if err != nil {
		return Team{}, err
	}
	if !tsk.AssignedTo(actor) {
		return Team{}, ErrNotAssigned
	}

	if tsk.MaxTeamSize > 0 && len(team.Members) >= tsk.MaxTeamSize {
		return Team{}, core.NewValidationError(ErrTeamFull)
	}
	if team.HasMember(actor.ID) {
		return Team{}, core.NewValidationError(ErrAlreadyMember)
	}

	team.Members = append(team.Members, actor.ID)
	team.UpdatedAt = time.Now().UTC()
	return svc.teamRepo.UpdateTeam(ctx, team)
}

// TaskTeams lists the teams of a task visible to its owner or assignees.
func (svc *Service) TaskTeams(ctx context.Context, actor user.User, taskID string) ([]Team, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !tsk.ViewableBy(actor) {
		return nil, ErrNotAssigned
	}
	return svc.teamRepo.QueryTeamsByTask(ctx, taskID)
}

// SendMessage appends a chat message to a task's history.
func (svc *Service) SendMessage(ctx context.Context, actor user.User, nm NewMessage) (Message, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, nm.TaskID)
	if err != nil {
		return Message{}, err
	}
	if !tsk.ViewableBy(actor) {
		return Message{}, ErrNotAssigned
	}

	return svc.msgRepo.CreateMessage(ctx, Message{
		TaskID:    nm.TaskID,
		SenderID:  actor.ID,
		Content:   nm.Content,
		CreatedAt: time.Now().UTC(),
	})
}

// TaskMessages returns a task's chat history in send order.
func (svc *Service) TaskMessages(ctx context.Context, actor user.User, taskID string) ([]Message, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !tsk.ViewableBy(actor) {
		return nil, ErrNotAssigned
	}
	return svc.msgRepo.QueryMessagesByTask(ctx, taskID)
}
