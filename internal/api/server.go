// Package api - HTTP API, через которое внешние клиенты создают ссылки на встречи,
// ищут значения полей и работают с занятиями.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// LessonAPI - операции с занятиями (service.LessonService)
type LessonAPI interface {
	CreateLesson(ctx context.Context, in service.NewLesson) (*model.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*model.Lesson, error)
	UpdateStatus(ctx context.Context, id int64, to model.LessonStatus, reason string) (*model.Lesson, error)
}

// StudentAPI - операции со студентами (service.StudentService)
type StudentAPI interface {
	Create(ctx context.Context, in service.NewStudent) (*model.Student, error)
}

// CalendarAPI - календарь и дашборд (service.CalendarService)
type CalendarAPI interface {
	Events(ctx context.Context, f model.CalendarFilter) ([]model.CalendarEvent, error)
	Dashboard(ctx context.Context, teacherID int64) (*model.TeacherDashboard, error)
}

type Options struct {
	Address        string
	DisableReqLogs bool
	Location       *time.Location

	Lessons  LessonAPI
	Students StudentAPI
	Calendar CalendarAPI
	Lookup   service.FieldLookup
	Meet     meet.Provider

	Logger *zap.Logger
}

type Server struct {
	opts      Options
	app       *echo.Echo
	validator *requestValidator
	logger    *zap.Logger
}

func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	s := &Server{
		opts:      opts,
		app:       echo.New(),
		validator: newRequestValidator(),
		logger:    opts.Logger.Named("api"),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Validator = s.validator
	s.app.HTTPErrorHandler = newHTTPErrorHandler(s.validator, s.logger)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if !s.opts.DisableReqLogs {
		s.app.Use(s.requestLogger())
	}
	s.app.Use(middleware.Recover())

	s.app.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	g := s.app.Group("/api")
	h := &handlers{
		opts: s.opts,
		loc:  s.opts.Location,
	}
	h.register(g)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}

// Start слушает адрес до Stop; http.ErrServerClosed не считается ошибкой
func (s *Server) Start() error {
	s.logger.Info("HTTP API listening", zap.String("addr", s.opts.Address))
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}
