package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ablespace/ablespace/core"
	"github.com/ablespace/ablespace/core/notification"
	"github.com/ablespace/ablespace/core/task"
	"github.com/ablespace/ablespace/core/user"
	"github.com/ablespace/ablespace/realtime"
)

const shutdownTimeout = 10 * time.Second

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		UserSvc  *user.Service
		TaskSvc  *task.Service
		NotifSvc *notification.Service
		Hub      *realtime.Hub
		Logger   core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo

		shutdown     chan struct{}
		shutdownOnce sync.Once
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     core.Conf.AllowedOrigins,
		AllowCredentials: true,
	}))

	validate, translator := core.NewValidator()

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, translator, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := appJWTMiddleware()

	registerUserAPI(api, jwt, s.opts.UserSvc, validate, translator)
	registerAcademicAPI(api, jwt, s.opts.TaskSvc, s.opts.UserSvc, s.opts.Hub, validate)
	registerPersonalAPI(api, jwt, s.opts.TaskSvc, s.opts.UserSvc, s.opts.Hub, validate)
	registerNotificationAPI(api, jwt, s.opts.NotifSvc)
	registerRealtimeAPI(s.app, jwt, s.opts.Hub, s.opts.Logger)
}

func (s *server) Start() {
	go func() {
		if err := s.app.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
			s.opts.Logger.Fatal("starting server", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-s.shutdown:
	}

	s.opts.Logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		s.opts.Logger.Error("graceful shutdown failed", err)
		_ = s.app.Close()
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to AbleSpace API!")
}
