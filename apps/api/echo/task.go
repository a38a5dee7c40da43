package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
	"github.com/ablespace/ablespace/realtime"
)

type academicApi struct {
	svc      *task.Service
	usrSvc   *user.Service
	hub      *realtime.Hub
	validate *validator.Validate
}

func registerAcademicAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *task.Service,
	usrSvc *user.Service,
	hub *realtime.Hub,
	validate *validator.Validate,
) {
	api := academicApi{
		svc:      svc,
		usrSvc:   usrSvc,
		hub:      hub,
		validate: validate,
	}

	ag := g.Group("/academic", jwt)

	// teacher endpoints
	ag.POST("/tasks", api.createTask, teacherMiddleware())
	ag.GET("/tasks/teacher", api.teacherTasks, teacherMiddleware())
	ag.GET("/students", api.students, teacherMiddleware())
	ag.PUT("/tasks/:id/assign", api.assignTask, teacherMiddleware())
	ag.PUT("/tasks/:id", api.updateTask, teacherMiddleware())
	ag.DELETE("/tasks/:id", api.destroyTask, teacherMiddleware())

	// student endpoints
	ag.GET("/tasks/student", api.studentTasks, studentMiddleware())
	ag.PATCH("/tasks/:id/status", api.updateStatus, studentMiddleware())
	ag.POST("/teams", api.createTeam, studentMiddleware())
	ag.POST("/teams/:id/join", api.joinTeam, studentMiddleware())

	// shared endpoints
	ag.GET("/tasks/:id/teams", api.taskTeams)
	ag.GET("/tasks/:id/messages", api.taskMessages)
	ag.POST("/messages", api.sendMessage)
}

// mapTaskErr converts domain errors to their HTTP counterparts;
// anything else passes through untouched.
func mapTaskErr(err error) error {
	switch errors.Cause(err) {
	case task.ErrTaskNotFound, task.ErrTeamNotFound:
		return errHttpNotFound
	case task.ErrNotOwner, task.ErrNotAssigned, task.ErrNotParticipant:
		return errHttpForbidden
	}
	return err
}

// Handlers

func (api *academicApi) createTask(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, tsk)
}

func (api *academicApi) teacherTasks(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tasks, err := api.svc.TeacherTasks(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying teacher tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *academicApi) studentTasks(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tasks, err := api.svc.StudentTasks(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying student tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *academicApi) students(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	students, err := api.usrSvc.Students(ctx.Request().Context(), ctxUsr.BranchesHandled)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *academicApi) assignTask(ctx echo.Context) error {
	var data task.AssignTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.Assign(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "assigning task"))
	}

	api.hub.BroadcastTaskUpdated(tsk)
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *academicApi) updateTask(ctx echo.Context) error {
	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "updating task"))
	}

	api.hub.BroadcastTaskUpdated(tsk)
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *academicApi) destroyTask(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return mapTaskErr(errors.Wrap(err, "deleting task"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) updateStatus(ctx echo.Context) error {
	var data task.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tsk, err := api.svc.UpdateStatus(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data.Status)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "updating task status"))
	}

	api.hub.BroadcastTaskUpdated(tsk)
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *academicApi) createTeam(ctx echo.Context) error {
	var data task.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	team, err := api.svc.CreateTeam(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "creating team"))
	}
	return ctx.JSON(http.StatusCreated, team)
}

func (api *academicApi) joinTeam(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	team, err := api.svc.JoinTeam(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "joining team"))
	}
	return ctx.JSON(http.StatusOK, team)
}

func (api *academicApi) taskTeams(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	teams, err := api.svc.TaskTeams(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "querying task teams"))
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *academicApi) sendMessage(ctx echo.Context) error {
	var data task.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msg, err := api.svc.SendMessage(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "sending message"))
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *academicApi) taskMessages(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	msgs, err := api.svc.TaskMessages(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "querying task messages"))
	}
	return ctx.JSON(http.StatusOK, msgs)
}
