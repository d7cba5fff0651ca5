package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/session"
	"github.com/spigell/resume-gate/internal/submission"
)

// apiError carries an explicit status and payload to the error handler.
type apiError struct {
	Status  int
	Message string
	Details any
	Cause   error
}

func (e *apiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *apiError) Unwrap() error {
	return e.Cause
}

// classify maps an error to a status, a message safe to show the applicant and
// optional details.
func classify(err error) (int, string, any) {
	var (
		apiErr     *apiError
		fiberErr   *fiber.Error
		extractErr *extract.ExtractionError
		validation applicant.ValidationErrors
		submitErr  *submission.SubmissionError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Status, apiErr.Message, apiErr.Details
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message, nil
	case errors.As(err, &extractErr):
		return fiber.StatusUnprocessableEntity, "could not read the uploaded resume", nil
	case errors.Is(err, extract.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge, err.Error(), nil
	case errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, extract.ErrEmptyDocument),
		errors.Is(err, extract.ErrNoDocument):
		return fiber.StatusBadRequest, err.Error(), nil
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, "profile has invalid fields", map[string]string(validation)
	case errors.Is(err, session.ErrStale):
		return fiber.StatusConflict, err.Error(), nil
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotReady):
		return fiber.StatusConflict, err.Error(), nil
	case errors.Is(err, session.ErrBlocked):
		return fiber.StatusUnprocessableEntity, err.Error(), nil
	case ai.Kind(err) != "":
		return fiber.StatusBadGateway, "resume analysis failed, please try again", fiber.Map{"kind": ai.Kind(err)}
	case errors.As(err, &submitErr):
		return fiber.StatusBadGateway, "application could not be delivered", fiber.Map{"status": submitErr.StatusCode}
	default:
		return fiber.StatusInternalServerError, "internal server error", nil
	}
}
