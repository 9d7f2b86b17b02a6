package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelsim/internal/simulator"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	UptimeSec float64         `json:"uptime_seconds"`
	Telemetry TelemetryHealth `json:"telemetry"`
}

// TelemetryHealth reports the state of the telemetry pipeline. The service
// stays up when export is degraded; this surfaces it.
type TelemetryHealth struct {
	Healthy  bool `json:"healthy"`
	Degraded bool `json:"degraded"`
}

// PingResponse is the response body for GET /health/ping.
type PingResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body returned for rejected requests.
type ErrorResponse struct {
	Error      string   `json:"error"`
	ValidTypes []string `json:"valid_operation_types,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	health := s.telemetry.Health()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		UptimeSec: time.Since(s.startedAt).Seconds(),
		Telemetry: TelemetryHealth{
			Healthy:  health.Healthy,
			Degraded: health.Degraded,
		},
	})
}

func (s *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}

// handleSimulate runs one workflow at the given tier.
//
// A simulated step failure is still a successful simulation: the response
// is 200 with status "failed" in the body. Only invalid definitions (400)
// and unexpected faults (500) are HTTP errors.
func (s *Server) handleSimulate(variant simulator.Variant) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bindRequest(c)
		if err != nil {
			return err
		}

		result, runErr := s.simulator.Run(c.Request().Context(), variant, req)
		return s.respond(c, result, runErr)
	}
}

// handleSimulateError runs the error-demonstration workflow.
func (s *Server) handleSimulateError(c echo.Context) error {
	req, err := bindRequest(c)
	if err != nil {
		return err
	}

	result, runErr := s.simulator.RunError(c.Request().Context(), req)
	return s.respond(c, result, runErr)
}

// bindRequest parses the optional JSON body. An empty body means "run the
// built-in workflow".
func bindRequest(c echo.Context) (simulator.Request, error) {
	var req simulator.Request
	if c.Request().ContentLength == 0 {
		return req, nil
	}
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return req, nil
}

func (s *Server) respond(c echo.Context, result *simulator.Result, runErr error) error {
	if runErr == nil || simulator.IsSimulatedFailure(runErr) {
		return c.JSON(http.StatusOK, result)
	}

	if errors.Is(runErr, simulator.ErrInvalidWorkflow) {
		resp := ErrorResponse{Error: runErr.Error()}
		var unknownOp *simulator.UnknownOperationError
		if errors.As(runErr, &unknownOp) {
			for _, op := range simulator.OperationTypes() {
				resp.ValidTypes = append(resp.ValidTypes, string(op))
			}
		}
		return c.JSON(http.StatusBadRequest, resp)
	}

	s.logger.Error(c.Request().Context(), "workflow run fault", zap.Error(runErr))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "workflow execution failed"})
}
