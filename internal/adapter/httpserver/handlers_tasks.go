package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/taskpulse/internal/domain"
	apperrors "github.com/pscheid92/taskpulse/internal/platform/errors"
)

type createTaskRequest struct {
	Title string `json:"title"`
}

type taskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func (s *Server) registerTaskRoutes() {
	s.echo.GET("/tasks", s.handleListTasks)
	s.echo.GET("/tasks/:id", s.handleGetTask)
	s.echo.POST("/tasks", s.handleCreateTask, newRateLimiter(s.config.CreateRateLimit, s.config.CreateRateBurst))
}

func (s *Server) handleListTasks(c echo.Context) error {
	if err := c.JSON(http.StatusOK, taskListResponse{Tasks: s.tasks.List()}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetTask(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("task id must be a positive integer").Because(err)
	}

	task, ok := s.tasks.Get(id)
	if !ok {
		return apperrors.NotFoundError("task not found").WithField("task_id", id)
	}

	if err := c.JSON(http.StatusOK, task); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("request body must be a JSON object with a title").Because(err)
	}

	task, err := s.tasks.Create(req.Title)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, task); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
