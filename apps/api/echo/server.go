package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/analytics"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
)

// Deps are the Server dependencies.
type Deps struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	RateLimiter core.RateLimiter `optional:"true"`

	UserSvc      user.Service
	PlanSvc      plan.Service
	FeedbackSvc  feedback.Service
	AnalyticsSvc analytics.Service
}

type Server struct {
	conf     *core.Config
	logger   core.Logger
	app      *echo.Echo
	auth     *jwtAuth
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps Deps) *Server {
	s := &Server{
		conf:     deps.Conf,
		logger:   deps.Logger,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps Deps) {
	app := s.app
	app.HideBanner = true
	app.Debug = s.conf.Debug
	app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, deps.Translator, s.signalShutdown)

	app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		app.Use(requestLogger(s.logger))
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	app.Use(secureHeaders())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		MaxAge:       86400,
	}))
	if deps.RateLimiter != nil {
		app.Use(rateLimitMiddleware(deps.RateLimiter, s.logger))
	}

	app.GET("/", s.home)
	app.GET("/health", health)

	v1 := app.Group("/v1")
	authed := []echo.MiddlewareFunc{s.auth.middleware(), activeUserMiddleware(deps.UserSvc)}

	registerUserAPI(v1, authed, s.auth, deps.UserSvc, deps.Validate)
	registerPlanAPI(v1, authed, deps.UserSvc, deps.PlanSvc, deps.Validate)
	registerFeedbackAPI(v1, authed, deps.UserSvc, deps.FeedbackSvc, deps.Validate)
	registerAnalyticsAPI(v1, authed, deps.UserSvc, deps.AnalyticsSvc)
}

// Start listens on the configured address. Listener errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // shutdown already requested
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
