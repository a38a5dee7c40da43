package main

import (
	"context"
	"log"
	"os"

	"github.com/ablespace/ablespace/apps/api/echo"
	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/notification"
	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
	"github.com/ablespace/ablespace/realtime"
	"github.com/ablespace/ablespace/services/email"
	"github.com/ablespace/ablespace/services/logger"
	"github.com/ablespace/ablespace/storage/mongodb"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	// set up DB & repos
	db, err := mongorepos.Open(context.Background(), core.Conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	usrRepo := mongorepos.NewUserRepository(db)
	taskRepo := mongorepos.NewTaskRepository(db)
	teamRepo := mongorepos.NewTeamRepository(db)
	msgRepo := mongorepos.NewMessageRepository(db)
	notifRepo := mongorepos.NewNotificationRepository(db)

	// set up realtime hub
	hub := realtime.NewHub(realtime.NewRegistry(), logger)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc)
	notifSvc := notification.NewService(notifRepo, hub)
	taskSvc := task.NewService(taskRepo, teamRepo, msgRepo, notifSvc)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:     core.Conf.Server.Addr,
			UserSvc:  usrSvc,
			TaskSvc:  taskSvc,
			NotifSvc: notifSvc,
			Hub:      hub,
			Logger:   logger,
		},
	)
	app.Start()
}
