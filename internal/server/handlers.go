package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/logger"
	"github.com/spigell/resume-gate/internal/pipeline"
	"github.com/spigell/resume-gate/internal/policy"
	"github.com/spigell/resume-gate/internal/session"
	"github.com/spigell/resume-gate/internal/submission"
)

const resumeField = "resume"

type analysisResponse struct {
	Analysis      policy.Result              `json:"analysis"`
	ProfileErrors applicant.ValidationErrors `json:"profileErrors,omitempty"`
}

type sessionResponse struct {
	Session       session.Snapshot           `json:"session"`
	ProfileErrors applicant.ValidationErrors `json:"profileErrors,omitempty"`
}

type submitResponse struct {
	Receipt *submission.Receipt `json:"receipt"`
	Session session.Snapshot    `json:"session"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "ok", fiber.Map{
		"status":   "healthy",
		"sessions": s.sessions.Len(),
		"time":     time.Now().UTC(),
	})
}

func (s *Server) getJob(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "job listing", s.job)
}

// analyze is the stateless variant: one multipart request carries the resume
// and the profile, the response carries the canonical result.
func (s *Server) analyze(c *fiber.Ctx) error {
	doc, err := s.resumeFromForm(c)
	if err != nil {
		return err
	}

	profile := profileFromForm(c)
	outcome, err := s.pipeline.Analyze(c.UserContext(), pipeline.Request{Document: doc, Profile: profile})
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, outcome.Result.SubmissionEligibility.Summary, analysisResponse{
		Analysis:      outcome.Result,
		ProfileErrors: profileErrors(profile),
	})
}

func (s *Server) createSession(c *fiber.Ctx) error {
	sess := s.sessions.Create()
	s.logger.Debug("session created", logger.SessionFields(sess.ID(), 0)...)
	return success(c, fiber.StatusCreated, "session created", sessionResponse{Session: sess.Snapshot()})
}

func (s *Server) getSession(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "session", sessionResponse{Session: sess.Snapshot()})
}

func (s *Server) deleteSession(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.Reset(); err != nil {
		return err
	}
	s.sessions.Delete(sess.ID())
	return success(c, fiber.StatusOK, "session deleted", nil)
}

// uploadResume replaces the session's resume and analyzes it. When a newer
// upload overtakes this one the answer is 409 with the current session.
func (s *Server) uploadResume(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	doc, err := s.resumeFromForm(c)
	if err != nil {
		return err
	}

	// The multipart file does not outlive the request.
	doc, err = doc.Materialize()
	if err != nil {
		return err
	}

	snap, err := s.pipeline.Run(c.UserContext(), sess, doc)
	if errors.Is(err, session.ErrStale) {
		return &apiError{
			Status:  fiber.StatusConflict,
			Message: err.Error(),
			Details: sessionResponse{Session: sess.Snapshot()},
			Cause:   err,
		}
	}
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, "resume analyzed", sessionResponse{
		Session:       *snap,
		ProfileErrors: profileErrors(snap.Profile),
	})
}

func (s *Server) removeResume(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.RemoveDocument(); err != nil {
		return err
	}
	return success(c, fiber.StatusOK, "resume removed", sessionResponse{Session: sess.Snapshot()})
}

// updateEligibility stores the form and re-evaluates the current analysis
// without calling the model again.
func (s *Server) updateEligibility(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	var profile applicant.Profile
	if err := c.BodyParser(&profile); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "profile must be a JSON object")
	}
	profile = profile.Normalize()

	snap := sess.UpdateProfile(profile, s.pipeline.Engine())
	return success(c, fiber.StatusOK, "eligibility updated", sessionResponse{
		Session:       snap,
		ProfileErrors: profileErrors(profile),
	})
}

// submit delivers the application. The stored canonical result is the only
// gate.
func (s *Server) submit(c *fiber.Ctx) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}

	ticket, err := sess.BeginSubmit()
	if errors.Is(err, session.ErrBlocked) {
		snap := sess.Snapshot()
		message := err.Error()
		var details any
		if snap.Result != nil {
			elig := snap.Result.SubmissionEligibility
			if elig.BlockingMessage != nil {
				message = *elig.BlockingMessage
			}
			details = elig
		}
		return &apiError{Status: fiber.StatusUnprocessableEntity, Message: message, Details: details, Cause: err}
	}
	if err != nil {
		return err
	}

	if s.submitter == nil {
		sess.FinishSubmit(ticket, submission.ErrNoEndpoint)
		return &apiError{Status: fiber.StatusServiceUnavailable, Message: "submission is not configured"}
	}

	receipt, err := s.submitter.Submit(c.UserContext(), submission.Application{
		Profile:  ticket.Profile,
		Document: ticket.Document,
	})
	sess.FinishSubmit(ticket, err)
	if err != nil {
		return err
	}

	s.logger.Info("application submitted",
		append(logger.SessionFields(sess.ID(), ticket.Generation),
			zap.Bool("delivered", receipt.Delivered),
			zap.Int("score", ticket.Result.ResumeScore),
		)...,
	)

	return success(c, fiber.StatusOK, "application submitted", submitResponse{
		Receipt: receipt,
		Session: sess.Snapshot(),
	})
}

func (s *Server) session(c *fiber.Ctx) (*session.Session, error) {
	sess, ok := s.sessions.Get(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found or expired")
	}
	return sess, nil
}

func (s *Server) resumeFromForm(c *fiber.Ctx) (*extract.Document, error) {
	fh, err := c.FormFile(resumeField)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "resume file is required in the \"resume\" form field")
	}

	doc := extract.FromFileHeader(fh)
	if err := extract.Validate(doc, s.maxFileSize); err != nil {
		return nil, err
	}
	return doc, nil
}

func profileFromForm(c *fiber.Ctx) applicant.Profile {
	return applicant.Profile{
		Name:        c.FormValue("name"),
		Email:       c.FormValue("email"),
		GitHub:      c.FormValue("github"),
		College:     c.FormValue("college"),
		PassingYear: c.FormValue("passingYear"),
		Address:     c.FormValue("address"),
		Age:         c.FormValue("age"),
		Phone:       c.FormValue("phone"),
		Skills:      applicant.SplitSkills(strings.TrimSpace(c.FormValue("skills"))),
	}.Normalize()
}

func profileErrors(profile applicant.Profile) applicant.ValidationErrors {
	var verrs applicant.ValidationErrors
	if err := applicant.Validate(profile); errors.As(err, &verrs) {
		return verrs
	}
	return nil
}
