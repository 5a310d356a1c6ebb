package mockauth

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moreInfoBase = "https://developer.api.autodesk.com/documentation/v1/errors/"

const (
	codeInvalidClient      = "AUTH-001"
	codeInvalidGrant       = "AUTH-004"
	codeMissingParameter   = "AUTH-008"
	codeUnsupportedGrant   = "AUTH-012"
	codeInternal           = "AUTH-500"
	codeGenericHTTPFailure = "AUTH-000"
)

// apiError renders as the JSON error body the real endpoint sends.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func invalidClient() *apiError {
	return &apiError{
		Status:  fiber.StatusUnauthorized,
		Code:    codeInvalidClient,
		Message: "The client_id specified does not have access to the api product",
	}
}

func missingParameter(name string) *apiError {
	return &apiError{
		Status:  fiber.StatusBadRequest,
		Code:    codeMissingParameter,
		Message: "The required parameter(s) " + name + " not present in the request",
	}
}

func unsupportedGrant(grantType string) *apiError {
	return &apiError{
		Status:  fiber.StatusBadRequest,
		Code:    codeUnsupportedGrant,
		Message: "Unsupported grant_type '" + grantType + "' for this endpoint",
	}
}

func invalidGrant(msg string) *apiError {
	return &apiError{
		Status:  fiber.StatusBadRequest,
		Code:    codeInvalidGrant,
		Message: msg,
	}
}

type errorBody struct {
	DeveloperMessage string `json:"developerMessage"`
	ErrorCode        string `json:"errorCode"`
	MoreInfo         string `json:"more info"`
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *apiError
		if !errors.As(err, &e) {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				e = &apiError{Status: fe.Code, Code: codeGenericHTTPFailure, Message: fe.Message}
			} else {
				e = &apiError{Status: fiber.StatusInternalServerError, Code: codeInternal, Message: "Internal server error"}
			}
		}

		span := trace.SpanFromContext(c.UserContext())
		span.RecordError(err)
		span.SetStatus(codes.Error, e.Message)

		logger.WarnContext(
			c.UserContext(),
			"request rejected",
			slog.Int("status", e.Status),
			slog.String("error_code", e.Code),
			slog.String("message", e.Message),
		)

		return c.Status(e.Status).JSON(errorBody{
			DeveloperMessage: e.Message,
			ErrorCode:        e.Code,
			MoreInfo:         moreInfoBase + e.Code,
		})
	}
}
