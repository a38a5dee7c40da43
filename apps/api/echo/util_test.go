package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/notification"
	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
	"github.com/ablespace/ablespace/realtime"
	"github.com/ablespace/ablespace/services/email"
	"github.com/ablespace/ablespace/storage/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func TestMain(m *testing.M) {
	// stable error payloads
	core.Conf.Debug = false
	core.Conf.TestMode = true
	os.Exit(m.Run())
}

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	server   Server
	usrSvc   *user.Service
	taskSvc  *task.Service
	notifSvc *notification.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()
	emailsvc.ClearSentMessages()

	db := inmemdb.NewDB()
	hub := realtime.NewHub(realtime.NewRegistry(), testLogger{})

	usrSvc := user.NewService(inmemdb.NewUserRepository(db), emailsvc.NewConsoleServiceMock())
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db), hub)
	taskSvc := task.NewService(
		inmemdb.NewTaskRepository(db),
		inmemdb.NewTeamRepository(db),
		inmemdb.NewMessageRepository(db),
		notifSvc,
	)

	server := NewServer(&Options{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		TaskSvc:        taskSvc,
		NotifSvc:       notifSvc,
		Hub:            hub,
		Logger:         testLogger{},
	})
	return &testApp{server: server, usrSvc: usrSvc, taskSvc: taskSvc, notifSvc: notifSvc}
}

func (a *testApp) createTeacher(t *testing.T, email string, branches ...string) user.User {
	t.Helper()
	if len(branches) == 0 {
		branches = []string{"CSE"}
	}
	usr, err := a.usrSvc.Register(context.Background(), user.NewUser{
		Name:            "Mr. Smith",
		Email:           email,
		Password:        "Password123",
		Role:            user.RoleTeacher,
		Branch:          branches[0],
		BranchesHandled: branches,
	})
	if err != nil {
		t.Fatalf("createTeacher(): %v", err)
	}
	return usr
}

func (a *testApp) createStudent(t *testing.T, email, branch, roll string) user.User {
	t.Helper()
	usr, err := a.usrSvc.Register(context.Background(), user.NewUser{
		Name:       "Jane Doe",
		Email:      email,
		Password:   "Password123",
		Role:       user.RoleStudent,
		Branch:     branch,
		Year:       3,
		RollNumber: roll,
	})
	if err != nil {
		t.Fatalf("createStudent(): %v", err)
	}
	return usr
}

func (a *testApp) createTask(t *testing.T, teacher user.User, nt task.NewTask) task.Task {
	t.Helper()
	tsk, err := a.taskSvc.Create(context.Background(), teacher, nt)
	if err != nil {
		t.Fatalf("createTask(): %v", err)
	}
	return tsk
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
