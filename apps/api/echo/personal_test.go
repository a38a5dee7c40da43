package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ablespace/ablespace/core/task"
)

func TestPersonalTaskAPI(t *testing.T) {
	app := setup(t)
	creator := app.createStudent(t, "jane@test.com", "CSE", "CSE001")
	peer := app.createStudent(t, "joe@test.com", "IT", "IT001")
	outsider := app.createStudent(t, "eve@test.com", "ECE", "ECE001")
	creatorToken := getToken(t, creator)

	// no role gate here; a student creates their own task
	req, rec := newAuthRequest(http.MethodPost, "/api/tasks", creatorToken,
		marchallObj(t, map[string]string{"title": "Side Project", "priority": "Low"}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d; body %s", rec.Code, rec.Body.String())
	}
	var tsk task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tsk); err != nil {
		t.Fatalf("unmarshalling task: %v", err)
	}
	if tsk.CreatorID != creator.ID {
		t.Errorf("CreatorID = %q; want %q", tsk.CreatorID, creator.ID)
	}

	// the creator hands the task to a peer, which notifies them
	req, rec = newAuthRequest(http.MethodPut, "/api/tasks/"+tsk.ID, creatorToken,
		marchallObj(t, map[string]string{"assigned_to_id": peer.ID}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update code = %d; body %s", rec.Code, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, "/api/notifications", getToken(t, peer))
	app.server.ServeHTTP(rec, req)
	var ns []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &ns); err != nil {
		t.Fatalf("unmarshalling notifications: %v", err)
	}
	if len(ns) != 1 {
		t.Errorf("notifications = %+v; want 1", ns)
	}

	tests := []httpTest{
		{
			name: "assignee updates the task", method: http.MethodPut, path: "/api/tasks/" + tsk.ID,
			token: getToken(t, peer), body: marchallObj(t, map[string]string{"status": "In Progress"}),
			wantCode: http.StatusOK,
		},
		{
			name: "bystanders cannot update", method: http.MethodPut, path: "/api/tasks/" + tsk.ID,
			token: getToken(t, outsider), body: marchallObj(t, map[string]string{"title": "Hijacked"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "anyone authenticated can read", method: http.MethodGet, path: "/api/tasks/" + tsk.ID,
			token: getToken(t, outsider), wantCode: http.StatusOK,
		},
		{
			name: "unknown task", method: http.MethodGet, path: "/api/tasks/nope",
			token: creatorToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "only the creator deletes", method: http.MethodDelete, path: "/api/tasks/" + tsk.ID,
			token: getToken(t, peer), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unauthenticated", method: http.MethodGet, path: "/api/tasks",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec = newAuthRequest(http.MethodDelete, "/api/tasks/"+tsk.ID, creatorToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %d; body %s", rec.Code, rec.Body.String())
	}
}

func TestPersonalTaskListAPI(t *testing.T) {
	app := setup(t)
	creator := app.createStudent(t, "jane@test.com", "CSE", "CSE001")
	peer := app.createStudent(t, "joe@test.com", "IT", "IT001")
	now := time.Now().UTC()

	late := app.createTask(t, creator, task.NewTask{Title: "Late", Priority: task.PriorityHigh, DueDate: now.Add(-48 * time.Hour)})
	done := app.createTask(t, creator, task.NewTask{Title: "Done", Status: task.StatusCompleted, DueDate: now.Add(-24 * time.Hour)})
	assigned := app.createTask(t, peer, task.NewTask{Title: "Assigned", AssignedToID: creator.ID, DueDate: now.Add(time.Hour)})
	token := getToken(t, creator)

	get := func(t *testing.T, path string) []task.Task {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s code = %d; body %s", path, rec.Code, rec.Body.String())
		}
		var tasks []task.Task
		if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
			t.Fatalf("unmarshalling tasks: %v", err)
		}
		return tasks
	}

	// everything, newest first
	if tasks := get(t, "/api/tasks"); len(tasks) != 3 || tasks[0].ID != assigned.ID {
		t.Errorf("unfiltered = %+v; want 3, newest first", tasks)
	}
	// "all" is a no-op filter
	if tasks := get(t, "/api/tasks?status=all&priority=all"); len(tasks) != 3 {
		t.Errorf("status=all = %+v; want 3", tasks)
	}
	if tasks := get(t, "/api/tasks?status=Completed"); len(tasks) != 1 || tasks[0].ID != done.ID {
		t.Errorf("status filter = %+v; want [Done]", tasks)
	}
	if tasks := get(t, "/api/tasks?priority=High"); len(tasks) != 1 || tasks[0].ID != late.ID {
		t.Errorf("priority filter = %+v; want [Late]", tasks)
	}
	if tasks := get(t, "/api/tasks?filter_type=created"); len(tasks) != 2 {
		t.Errorf("created filter = %+v; want 2", tasks)
	}
	if tasks := get(t, "/api/tasks?filter_type=assigned"); len(tasks) != 1 || tasks[0].ID != assigned.ID {
		t.Errorf("assigned filter = %+v; want [Assigned]", tasks)
	}
	if tasks := get(t, "/api/tasks?sort_by=due_date&sort_order=asc"); len(tasks) != 3 || tasks[0].ID != late.ID {
		t.Errorf("due asc = %+v; want Late first", tasks)
	}

	// only the past-due, uncompleted task is overdue for the creator
	if tasks := get(t, "/api/tasks/overdue"); len(tasks) != 1 || tasks[0].ID != late.ID {
		t.Errorf("overdue = %+v; want [Late]", tasks)
	}

	// unknown sort column is rejected
	req, rec := newAuthRequest(http.MethodGet, "/api/tasks?sort_by=bogus", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sort_by=bogus code = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}
