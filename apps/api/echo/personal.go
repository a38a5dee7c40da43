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

// personalApi is the self-serve task surface. Unlike the academic one
// it has no role gates: any authenticated user manages their own tasks,
// and a task is editable by its creator or its individual assignee.
type personalApi struct {
	svc      *task.Service
	usrSvc   *user.Service
	hub      *realtime.Hub
	validate *validator.Validate
}

func registerPersonalAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *task.Service,
	usrSvc *user.Service,
	hub *realtime.Hub,
	validate *validator.Validate,
) {
	api := personalApi{
		svc:      svc,
		usrSvc:   usrSvc,
		hub:      hub,
		validate: validate,
	}

	pg := g.Group("/tasks", jwt)
	pg.POST("", api.createTask)
	pg.GET("", api.listTasks)
	pg.GET("/overdue", api.overdueTasks)
	pg.GET("/:id", api.getTask)
	pg.PUT("/:id", api.updateTask)
	pg.DELETE("/:id", api.destroyTask)
}

// Handlers

func (api *personalApi) createTask(ctx echo.Context) error {
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

func (api *personalApi) listTasks(ctx echo.Context) error {
	var data task.TaskQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskQuery")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tasks, err := api.svc.Tasks(ctx.Request().Context(), data.Filter(ctxUsr.ID))
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *personalApi) overdueTasks(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tasks, err := api.svc.OverdueTasks(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying overdue tasks")
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *personalApi) getTask(ctx echo.Context) error {
	tsk, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "finding task"))
	}
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *personalApi) updateTask(ctx echo.Context) error {
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

	tsk, err := api.svc.UpdateShared(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return mapTaskErr(errors.Wrap(err, "updating task"))
	}

	api.hub.BroadcastTaskUpdated(tsk)
	return ctx.JSON(http.StatusOK, tsk)
}

func (api *personalApi) destroyTask(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return mapTaskErr(errors.Wrap(err, "deleting task"))
	}
	return ctx.NoContent(http.StatusNoContent)
}
