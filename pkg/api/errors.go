package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codearena/arena/pkg/services"
)

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, services.ErrParticipantTerminated) {
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	if errors.Is(err, services.ErrInsufficientTokens) {
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	}
	if errors.Is(err, services.ErrUpstreamLLM) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// errorHandler renders every error as {status:"error", message}.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(c *echo.Context, err error) {
		if r, _ := echo.UnwrapResponse(c.Response()); r != nil && r.Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.StatusCode()
			if httpErr.Message != "" {
				message = httpErr.Message
			}
		} else {
			logger.Error("Unhandled error", "error", err)
		}

		if jerr := c.JSON(status, &ErrorResponse{Status: "error", Message: message}); jerr != nil {
			logger.Error("Failed to write error response", "error", jerr)
		}
	}
}
