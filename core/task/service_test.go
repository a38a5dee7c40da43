package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
	"github.com/ablespace/ablespace/storage/inmem"
)

// notifierMock records assignment notifications instead of delivering them.
type notifierMock struct {
	calls []string // userIDs, in call order
}

var _ task.Notifier = (*notifierMock)(nil)

func (n *notifierMock) TaskAssigned(_ context.Context, userID, _, _ string) error {
	n.calls = append(n.calls, userID)
	return nil
}

type fixture struct {
	svc      *task.Service
	notifier *notifierMock
	teamRepo task.TeamRepository
	msgRepo  task.MessageRepository

	teacher  user.User
	student  user.User // CSE
	student2 user.User // CSE
	outsider user.User // ECE
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.NewDB()
	notifier := &notifierMock{}
	teamRepo := inmemdb.NewTeamRepository(db)
	msgRepo := inmemdb.NewMessageRepository(db)
	return &fixture{
		svc:      task.NewService(inmemdb.NewTaskRepository(db), teamRepo, msgRepo, notifier),
		notifier: notifier,
		teamRepo: teamRepo,
		msgRepo:  msgRepo,
		teacher:  user.User{ID: "t1", Name: "Mr. Smith", Role: user.RoleTeacher, BranchesHandled: []string{"CSE"}},
		student:  user.User{ID: "s1", Name: "Jane", Role: user.RoleStudent, Branch: "CSE"},
		student2: user.User{ID: "s2", Name: "Joe", Role: user.RoleStudent, Branch: "CSE"},
		outsider: user.User{ID: "s3", Name: "Eve", Role: user.RoleStudent, Branch: "ECE"},
	}
}

func (f *fixture) createTask(t *testing.T, nt task.NewTask) task.Task {
	t.Helper()
	tsk, err := f.svc.Create(context.Background(), f.teacher, nt)
	if err != nil {
		t.Fatalf("Create(): %v", err)
	}
	return tsk
}

func TestServiceCreateDefaults(t *testing.T) {
	f := setup(t)

	tsk := f.createTask(t, task.NewTask{Title: "Lab Report"})
	if tsk.Priority != task.PriorityMedium {
		t.Errorf("Priority = %q; want %q", tsk.Priority, task.PriorityMedium)
	}
	if tsk.Status != task.StatusToDo {
		t.Errorf("Status = %q; want %q", tsk.Status, task.StatusToDo)
	}
	if tsk.MinTeamSize != 1 || tsk.MaxTeamSize != 1 {
		t.Errorf("team size defaults = %d/%d; want 1/1", tsk.MinTeamSize, tsk.MaxTeamSize)
	}
	if tsk.CreatorID != f.teacher.ID {
		t.Errorf("CreatorID = %q", tsk.CreatorID)
	}

	// creating a pre-assigned task does not notify
	f.createTask(t, task.NewTask{Title: "Quiz", AssignedToID: f.student.ID})
	if len(f.notifier.calls) != 0 {
		t.Errorf("notified on creation: %v", f.notifier.calls)
	}
}

func TestServiceAssignNotifiesOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Lab Report"})

	tsk, err := f.svc.Assign(ctx, f.teacher, tsk.ID, task.AssignTask{AssignedToID: f.student.ID})
	if err != nil {
		t.Fatalf("Assign(): %v", err)
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != f.student.ID {
		t.Fatalf("notifier calls = %v; want [%s]", f.notifier.calls, f.student.ID)
	}

	// re-assigning to the same student is silent
	if _, err = f.svc.Assign(ctx, f.teacher, tsk.ID, task.AssignTask{AssignedToID: f.student.ID}); err != nil {
		t.Fatalf("Assign(): %v", err)
	}
	if len(f.notifier.calls) != 1 {
		t.Errorf("notifier calls = %v; want exactly 1", f.notifier.calls)
	}

	// a branch-only assignment does not notify anyone
	if _, err = f.svc.Assign(ctx, f.teacher, tsk.ID, task.AssignTask{AssignedToBranch: "ECE"}); err != nil {
		t.Fatalf("Assign(): %v", err)
	}
	if len(f.notifier.calls) != 1 {
		t.Errorf("notifier calls = %v; want exactly 1", f.notifier.calls)
	}

	// a new individual assignee is notified again, via the general update path
	if _, err = f.svc.Update(ctx, f.teacher, tsk.ID, task.UpdateTask{AssignedToID: f.student2.ID}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if len(f.notifier.calls) != 2 || f.notifier.calls[1] != f.student2.ID {
		t.Errorf("notifier calls = %v; want [s1 s2]", f.notifier.calls)
	}
}

func TestServiceOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Lab Report"})

	otherTeacher := user.User{ID: "t2", Role: user.RoleTeacher}

	if _, err := f.svc.Update(ctx, otherTeacher, tsk.ID, task.UpdateTask{Title: "Hijacked"}); errors.Cause(err) != task.ErrNotOwner {
		t.Errorf("Update() by non-owner = %v; want ErrNotOwner", err)
	}
	if _, err := f.svc.Assign(ctx, otherTeacher, tsk.ID, task.AssignTask{AssignedToID: "s1"}); errors.Cause(err) != task.ErrNotOwner {
		t.Errorf("Assign() by non-owner = %v; want ErrNotOwner", err)
	}
	if err := f.svc.Delete(ctx, otherTeacher, tsk.ID); errors.Cause(err) != task.ErrNotOwner {
		t.Errorf("Delete() by non-owner = %v; want ErrNotOwner", err)
	}
	if _, err := f.svc.Update(ctx, f.teacher, "nope", task.UpdateTask{}); errors.Cause(err) != task.ErrTaskNotFound {
		t.Errorf("Update() unknown task = %v; want ErrTaskNotFound", err)
	}
}

func TestServiceUpdateStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Lab Report", AssignedToBranch: "CSE"})

	// statuses form no ordered workflow; any jump is allowed
	for _, status := range []string{task.StatusCompleted, task.StatusInProgress, task.StatusReview, task.StatusToDo} {
		got, err := f.svc.UpdateStatus(ctx, f.student, tsk.ID, status)
		if err != nil {
			t.Fatalf("UpdateStatus(%q): %v", status, err)
		}
		if got.Status != status {
			t.Errorf("Status = %q; want %q", got.Status, status)
		}
	}

	if _, err := f.svc.UpdateStatus(ctx, f.outsider, tsk.ID, task.StatusCompleted); errors.Cause(err) != task.ErrNotAssigned {
		t.Errorf("UpdateStatus() by unassigned = %v; want ErrNotAssigned", err)
	}
}

func TestServicePredicates(t *testing.T) {
	f := setup(t)
	tsk := task.Task{CreatorID: f.teacher.ID, AssignedToID: f.student.ID, AssignedToBranch: "CSE"}

	if !tsk.OwnedBy(f.teacher) || tsk.OwnedBy(f.student) {
		t.Error("OwnedBy is wrong")
	}
	if !tsk.AssignedTo(f.student) {
		t.Error("individual assignee not assigned")
	}
	if !tsk.AssignedTo(f.student2) {
		t.Error("branch student not assigned")
	}
	if tsk.AssignedTo(f.outsider) {
		t.Error("outsider assigned")
	}
	if !tsk.ViewableBy(f.teacher) || !tsk.ViewableBy(f.student2) || tsk.ViewableBy(f.outsider) {
		t.Error("ViewableBy is wrong")
	}

	// zero-valued targets never match zero-valued users
	if (task.Task{}).AssignedTo(user.User{}) {
		t.Error("empty task assigned to empty user")
	}
}

func TestServiceTeams(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Group Project", AssignedToBranch: "CSE", MinTeamSize: 1, MaxTeamSize: 3})

	team, err := f.svc.CreateTeam(ctx, f.student, task.NewTeam{TaskID: tsk.ID, TeamName: "Alpha"})
	if err != nil {
		t.Fatalf("CreateTeam(): %v", err)
	}
	if len(team.Members) != 1 || team.Members[0] != f.student.ID {
		t.Fatalf("Members = %v; want creator only", team.Members)
	}

	var vErr *core.ValidationError

	// one team per task per student
	if _, err = f.svc.CreateTeam(ctx, f.student, task.NewTeam{TaskID: tsk.ID, TeamName: "Beta"}); !errors.As(err, &vErr) {
		t.Errorf("second CreateTeam() = %v; want validation error", err)
	}

	// unassigned students cannot form teams
	if _, err = f.svc.CreateTeam(ctx, f.outsider, task.NewTeam{TaskID: tsk.ID}); errors.Cause(err) != task.ErrNotAssigned {
		t.Errorf("CreateTeam() by unassigned = %v; want ErrNotAssigned", err)
	}

	team, err = f.svc.JoinTeam(ctx, f.student2, team.ID)
	if err != nil {
		t.Fatalf("JoinTeam(): %v", err)
	}
	if len(team.Members) != 2 || team.Members[1] != f.student2.ID {
		t.Errorf("Members = %v; want join order preserved", team.Members)
	}

	// joining twice while there is still room
	if _, err = f.svc.JoinTeam(ctx, f.student2, team.ID); !errors.As(err, &vErr) || errors.Cause(vErr.Err) != task.ErrAlreadyMember {
		t.Errorf("JoinTeam() twice = %v; want ErrAlreadyMember", err)
	}

	student3 := user.User{ID: "s4", Role: user.RoleStudent, Branch: "CSE"}
	if team, err = f.svc.JoinTeam(ctx, student3, team.ID); err != nil {
		t.Fatalf("JoinTeam(): %v", err)
	}
	if len(team.Members) != 3 {
		t.Fatalf("Members = %v; want 3", team.Members)
	}

	// at MaxTeamSize everyone is turned away, existing members included:
	// the capacity check runs before the membership check
	student4 := user.User{ID: "s5", Role: user.RoleStudent, Branch: "CSE"}
	if _, err = f.svc.JoinTeam(ctx, student4, team.ID); !errors.As(err, &vErr) || errors.Cause(vErr.Err) != task.ErrTeamFull {
		t.Errorf("JoinTeam() full = %v; want ErrTeamFull", err)
	}
	if _, err = f.svc.JoinTeam(ctx, f.student2, team.ID); !errors.As(err, &vErr) || errors.Cause(vErr.Err) != task.ErrTeamFull {
		t.Errorf("JoinTeam() full by member = %v; want ErrTeamFull", err)
	}

	if _, err = f.svc.JoinTeam(ctx, f.student, "nope"); errors.Cause(err) != task.ErrTeamNotFound {
		t.Errorf("JoinTeam() unknown team = %v; want ErrTeamNotFound", err)
	}

	teams, err := f.svc.TaskTeams(ctx, f.teacher, tsk.ID)
	if err != nil {
		t.Fatalf("TaskTeams(): %v", err)
	}
	if len(teams) != 1 {
		t.Errorf("len(teams) = %d; want 1", len(teams))
	}
	if _, err = f.svc.TaskTeams(ctx, f.outsider, tsk.ID); errors.Cause(err) != task.ErrNotAssigned {
		t.Errorf("TaskTeams() by outsider = %v; want ErrNotAssigned", err)
	}
}

func TestServiceMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Group Project", AssignedToBranch: "CSE"})

	// both assigned students and the owning teacher can chat
	for i, actor := range []user.User{f.student, f.teacher, f.student2} {
		if _, err := f.svc.SendMessage(ctx, actor, task.NewMessage{TaskID: tsk.ID, Content: string(rune('a' + i))}); err != nil {
			t.Fatalf("SendMessage(): %v", err)
		}
	}

	if _, err := f.svc.SendMessage(ctx, f.outsider, task.NewMessage{TaskID: tsk.ID, Content: "hi"}); errors.Cause(err) != task.ErrNotAssigned {
		t.Errorf("SendMessage() by outsider = %v; want ErrNotAssigned", err)
	}

	msgs, err := f.svc.TaskMessages(ctx, f.student, tsk.ID)
	if err != nil {
		t.Fatalf("TaskMessages(): %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d; want 3", len(msgs))
	}
	// history comes back in send order
	for i, want := range []string{"a", "b", "c"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d].Content = %q; want %q", i, msgs[i].Content, want)
		}
	}
	if msgs[1].SenderID != f.teacher.ID {
		t.Errorf("SenderID = %q; want %q", msgs[1].SenderID, f.teacher.ID)
	}
}

func TestServiceDeleteCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Group Project", AssignedToBranch: "CSE", MaxTeamSize: 4})

	if _, err := f.svc.CreateTeam(ctx, f.student, task.NewTeam{TaskID: tsk.ID}); err != nil {
		t.Fatalf("CreateTeam(): %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, f.student, task.NewMessage{TaskID: tsk.ID, Content: "hello"}); err != nil {
		t.Fatalf("SendMessage(): %v", err)
	}

	if err := f.svc.Delete(ctx, f.teacher, tsk.ID); err != nil {
		t.Fatalf("Delete(): %v", err)
	}

	if _, err := f.svc.GetByID(ctx, tsk.ID); errors.Cause(err) != task.ErrTaskNotFound {
		t.Errorf("GetByID() after delete = %v; want ErrTaskNotFound", err)
	}
	teams, err := f.teamRepo.QueryTeamsByTask(ctx, tsk.ID)
	if err != nil || len(teams) != 0 {
		t.Errorf("teams after delete = %v, %v; want none", teams, err)
	}
	msgs, err := f.msgRepo.QueryMessagesByTask(ctx, tsk.ID)
	if err != nil || len(msgs) != 0 {
		t.Errorf("messages after delete = %v, %v; want none", msgs, err)
	}
}

func TestServiceTaskQueries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	older := f.createTask(t, task.NewTask{Title: "First"})
	time.Sleep(time.Millisecond)
	newer := f.createTask(t, task.NewTask{Title: "Second", AssignedToID: f.student.ID, AssignedToBranch: "CSE"})

	tasks, err := f.svc.TeacherTasks(ctx, f.teacher)
	if err != nil {
		t.Fatalf("TeacherTasks(): %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != newer.ID || tasks[1].ID != older.ID {
		t.Errorf("TeacherTasks() not newest first: %v", tasks)
	}

	// the doubly-matched task shows up exactly once
	tasks, err = f.svc.StudentTasks(ctx, f.student)
	if err != nil {
		t.Fatalf("StudentTasks(): %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != newer.ID {
		t.Errorf("StudentTasks() = %v; want [%s]", tasks, newer.ID)
	}

	if tasks, err = f.svc.StudentTasks(ctx, f.outsider); err != nil || len(tasks) != 0 {
		t.Errorf("StudentTasks() for outsider = %v, %v; want none", tasks, err)
	}
}

func TestServicePersonalQueries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	late := f.createTask(t, task.NewTask{Title: "Late", Priority: task.PriorityHigh, DueDate: now.Add(-48 * time.Hour), AssignedToID: f.student.ID})
	done := f.createTask(t, task.NewTask{Title: "Done", Status: task.StatusCompleted, DueDate: now.Add(-24 * time.Hour), AssignedToID: f.student.ID})
	later := f.createTask(t, task.NewTask{Title: "Later", DueDate: now.Add(-time.Hour), AssignedToID: f.student.ID})
	upcoming := f.createTask(t, task.NewTask{Title: "Upcoming", DueDate: now.Add(time.Hour), AssignedToID: f.student2.ID})

	// the unfiltered listing sees everything, newest first
	tasks, err := f.svc.Tasks(ctx, task.Filter{})
	if err != nil {
		t.Fatalf("Tasks(): %v", err)
	}
	if len(tasks) != 4 || tasks[0].ID != upcoming.ID || tasks[3].ID != late.ID {
		t.Errorf("Tasks() = %+v; want all four, newest first", tasks)
	}

	tasks, err = f.svc.Tasks(ctx, task.Filter{Status: task.StatusCompleted})
	if err != nil || len(tasks) != 1 || tasks[0].ID != done.ID {
		t.Errorf("Tasks(status) = %v, %v; want [Done]", tasks, err)
	}
	tasks, err = f.svc.Tasks(ctx, task.Filter{Priority: task.PriorityHigh})
	if err != nil || len(tasks) != 1 || tasks[0].ID != late.ID {
		t.Errorf("Tasks(priority) = %v, %v; want [Late]", tasks, err)
	}

	// assignee scoping plus due-date ordering
	tasks, err = f.svc.Tasks(ctx, task.Filter{AssigneeID: f.student.ID, SortBy: "due_date", Ascending: true})
	if err != nil {
		t.Fatalf("Tasks(): %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != late.ID || tasks[2].ID != later.ID {
		t.Errorf("Tasks(assignee, due asc) = %+v", tasks)
	}

	// overdue excludes completed and future tasks, soonest due first
	tasks, err = f.svc.OverdueTasks(ctx, f.student)
	if err != nil {
		t.Fatalf("OverdueTasks(): %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != late.ID || tasks[1].ID != later.ID {
		t.Errorf("OverdueTasks() = %+v; want [Late Later]", tasks)
	}

	// the creator sees their overdue tasks too
	if tasks, err = f.svc.OverdueTasks(ctx, f.teacher); err != nil || len(tasks) != 2 {
		t.Errorf("OverdueTasks() for creator = %v, %v; want 2", tasks, err)
	}
	if tasks, err = f.svc.OverdueTasks(ctx, f.outsider); err != nil || len(tasks) != 0 {
		t.Errorf("OverdueTasks() for outsider = %v, %v; want none", tasks, err)
	}
}

func TestServiceUpdateShared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tsk := f.createTask(t, task.NewTask{Title: "Draft", AssignedToID: f.student.ID, AssignedToBranch: "CSE"})

	// the direct assignee may edit
	got, err := f.svc.UpdateShared(ctx, f.student, tsk.ID, task.UpdateTask{Status: task.StatusInProgress})
	if err != nil {
		t.Fatalf("UpdateShared(): %v", err)
	}
	if got.Status != task.StatusInProgress {
		t.Errorf("Status = %q; want %q", got.Status, task.StatusInProgress)
	}

	// a branch match alone does not grant edit rights
	if _, err = f.svc.UpdateShared(ctx, f.student2, tsk.ID, task.UpdateTask{Title: "Hijacked"}); errors.Cause(err) != task.ErrNotParticipant {
		t.Errorf("UpdateShared() by branch student = %v; want ErrNotParticipant", err)
	}

	// reassignment through the shared path notifies the new assignee
	if _, err = f.svc.UpdateShared(ctx, f.teacher, tsk.ID, task.UpdateTask{AssignedToID: f.student2.ID}); err != nil {
		t.Fatalf("UpdateShared(): %v", err)
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0] != f.student2.ID {
		t.Errorf("notifier calls = %v; want [s2]", f.notifier.calls)
	}

	// and once reassigned, the new assignee may edit
	if _, err = f.svc.UpdateShared(ctx, f.student2, tsk.ID, task.UpdateTask{Title: "Final"}); err != nil {
		t.Errorf("UpdateShared() by new assignee = %v", err)
	}
}
