// Package server exposes the flow engine over HTTP. The surface is
// deliberately small: one invocation route, one listing route, and a
// health probe. Failure bodies carry only the taxonomy category and its
// fixed user message; backend detail stays in server logs.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"studyflow/internal/flow"
	"studyflow/internal/taxonomy"
)

// Server wraps an Echo instance around a flow engine.
type Server struct {
	engine *flow.Engine
	logger *zap.Logger
	echo   *echo.Echo
}

// New builds the HTTP surface for an engine. The engine's flow table
// must be fully registered before the first request arrives.
func New(engine *flow.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		logger: logger,
		echo:   echo.New(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger())

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/v1/flows", s.handleList)
	s.echo.POST("/v1/flows/:name", s.handleRun)

	return s
}

// Handler returns the underlying http.Handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start blocks serving on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requestLogger tags every request with a correlation id and logs its
// outcome. The id is echoed back so clients can quote it in reports.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-Id", requestID)
			started := time.Now()

			err := next(c)

			s.logger.Info("request",
				zap.String("request_id", requestID),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("elapsed", time.Since(started)))
			return err
		}
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Flows  int    `json:"flows"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Flows:  len(s.engine.Flows()),
	})
}

type flowInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type listResponse struct {
	Flows []flowInfo `json:"flows"`
}

func (s *Server) handleList(c echo.Context) error {
	resp := listResponse{Flows: []flowInfo{}}
	for _, name := range s.engine.Flows() {
		f := s.engine.Lookup(name)
		resp.Flows = append(resp.Flows, flowInfo{Name: name, Description: f.Description})
	}
	return c.JSON(http.StatusOK, resp)
}

// errorResponse is the only failure body the API emits.
type errorResponse struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (s *Server) handleRun(c echo.Context) error {
	name := c.Param("name")

	var input map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Category: string(taxonomy.ValidationFailure),
			Message:  taxonomy.Message(taxonomy.ValidationFailure),
		})
	}

	result, err := s.engine.Run(c.Request().Context(), name, input)
	if err != nil {
		terr := taxonomy.Classify(err)
		return c.JSON(statusFor(terr.Category), errorResponse{
			Category: string(terr.Category),
			Message:  terr.Message,
		})
	}
	return c.JSON(http.StatusOK, result)
}

// statusFor maps taxonomy categories onto HTTP status codes.
func statusFor(cat taxonomy.Category) int {
	switch cat {
	case taxonomy.ValidationFailure:
		return http.StatusBadRequest
	case taxonomy.SafetyBlocked:
		return http.StatusUnprocessableEntity
	case taxonomy.AuthConfigInvalid:
		return http.StatusInternalServerError
	case taxonomy.NetworkTransient:
		return http.StatusServiceUnavailable
	case taxonomy.OutputMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
