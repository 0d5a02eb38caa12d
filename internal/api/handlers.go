package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/form"
	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/model"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/labstack/echo/v4"
)

type handlers struct {
	opts Options
	loc  *time.Location
}

func (h *handlers) register(g *echo.Group) {
	g.POST("/meet", h.createMeet)
	g.GET("/lookup/:entity/:id/:field", h.lookup)

	lg := g.Group("/lessons")
	lg.POST("", h.createLesson)
	lg.GET("/:id", h.getLesson)
	lg.POST("/:id/status", h.updateStatus)

	g.GET("/calendar", h.calendar)
	g.GET("/teachers/:id/dashboard", h.dashboard)
	g.POST("/students", h.createStudent)
}

type meetRequest struct {
	Title        string `json:"title" validate:"notblank,max=200"`
	When         string `json:"when" validate:"required"`
	StudentEmail string `json:"student_email" validate:"omitempty,email"`
}

type lookupResponse struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

type createLessonRequest struct {
	Title         string `json:"title" validate:"notblank,max=140"`
	StudentID     *int64 `json:"student_id" validate:"omitempty,gt=0"`
	TeacherID     *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
	ScheduledTime string `json:"scheduled_time"`
	Duration      int    `json:"duration" validate:"omitempty,min=1,max=600"`
	Notes         string `json:"notes" validate:"max=5000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type statusResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Lesson  *model.Lesson `json:"lesson"`
}

type createStudentRequest struct {
	Name      string `json:"name" validate:"notblank,max=140"`
	Email     string `json:"email" validate:"omitempty,email"`
	TeacherID *int64 `json:"teacher_id" validate:"omitempty,gt=0"`
}

func (h *handlers) createMeet(c echo.Context) error {
	var req meetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	when, err := form.ParseTime(req.When, h.loc)
	if err != nil {
		return fieldError("when", "invalid date and time")
	}

	m, err := h.opts.Meet.CreateMeeting(c.Request().Context(), meet.Request{
		Title:        req.Title,
		When:         when,
		StudentEmail: req.StudentEmail,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, m)
}

func (h *handlers) lookup(c echo.Context) error {
	entity := service.Entity(c.Param("entity"))
	if entity != service.EntityStudent && entity != service.EntityUser {
		return errNotFound
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	value, found, err := h.opts.Lookup.Lookup(c.Request().Context(), entity, id, c.Param("field"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lookupResponse{Value: value, Found: found})
}

func (h *handlers) createLesson(c echo.Context) error {
	var req createLessonRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.NewLesson{
		Title:     req.Title,
		StudentID: req.StudentID,
		TeacherID: req.TeacherID,
		Duration:  req.Duration,
		Notes:     req.Notes,
	}
	if req.ScheduledTime != "" {
		t, err := form.ParseTime(req.ScheduledTime, h.loc)
		if err != nil {
			return fieldError("scheduled_time", "invalid date and time")
		}
		in.ScheduledTime = &t
	}

	lesson, err := h.opts.Lessons.CreateLesson(c.Request().Context(), in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, lesson)
}

func (h *handlers) getLesson(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	lesson, err := h.opts.Lessons.GetLesson(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lesson)
}

func (h *handlers) updateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	to, err := model.ParseLessonStatus(req.Status)
	if err != nil {
		return fieldError("status", err.Error())
	}

	lesson, err := h.opts.Lessons.UpdateStatus(c.Request().Context(), id, to, req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Lesson status updated to " + string(lesson.Status),
		Lesson:  lesson,
	})
}

func (h *handlers) calendar(c echo.Context) error {
	var (
		f   model.CalendarFilter
		err error
	)

	if f.StudentID, err = queryID(c, "student"); err != nil {
		return err
	}
	if f.TeacherID, err = queryID(c, "teacher"); err != nil {
		return err
	}
	if f.From, err = h.queryTime(c, "start"); err != nil {
		return err
	}
	if f.To, err = h.queryTime(c, "end"); err != nil {
		return err
	}

	events, err := h.opts.Calendar.Events(c.Request().Context(), f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, events)
}

func (h *handlers) dashboard(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	d, err := h.opts.Calendar.Dashboard(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, d)
}

func (h *handlers) createStudent(c echo.Context) error {
	var req createStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	st, err := h.opts.Students.Create(c.Request().Context(), service.NewStudent{
		Name:      req.Name,
		Email:     req.Email,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, st)
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return err
	}
	return c.Validate(dst)
}

func fieldError(field, msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, map[string]string{field: msg})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}

func queryID(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fieldError(name, "must be a positive integer")
	}
	return &id, nil
}

// queryTime принимает дату (2006-01-02) или любое время, которое понимает форма
func (h *handlers) queryTime(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, h.loc); err == nil {
		return &t, nil
	}
	t, err := form.ParseTime(v, h.loc)
	if err != nil {
		return nil, fieldError(name, "invalid date")
	}
	return &t, nil
}
