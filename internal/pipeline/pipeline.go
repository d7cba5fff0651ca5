// Package pipeline wires extraction, prompting, the model call and the
// eligibility policy into one analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/logger"
	"github.com/spigell/resume-gate/internal/policy"
	"github.com/spigell/resume-gate/internal/prompt"
	"github.com/spigell/resume-gate/internal/session"
)

const tracerName = "github.com/spigell/resume-gate/pipeline"

// Request is consumed by exactly one analysis.
type Request struct {
	Document *extract.Document
	Profile  applicant.Profile
}

type Outcome struct {
	Raw    *ai.RawAnalysis
	Result policy.Result
}

type Pipeline struct {
	extractor      extract.Extractor
	analyzer       ai.Analyzer
	engine         *policy.Engine
	jobDescription string
	logger         *zap.Logger
	tracer         trace.Tracer
}

func New(extractor extract.Extractor, analyzer ai.Analyzer, engine *policy.Engine, jobDescription string, log *zap.Logger) *Pipeline {
	if extractor == nil {
		extractor = extract.Placeholder{}
	}
	if engine == nil {
		engine = policy.NewEngine("")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		extractor:      extractor,
		analyzer:       analyzer,
		engine:         engine,
		jobDescription: jobDescription,
		logger:         log,
		tracer:         otel.Tracer(tracerName),
	}
}

func (p *Pipeline) Engine() *policy.Engine {
	return p.engine
}

// Analyze runs the whole chain without any session state.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Analyze")
	defer span.End()

	raw, err := p.analyze(ctx, req.Document, p.logger, nil)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	result := p.evaluate(ctx, raw, req.Profile, req.Document != nil)
	return &Outcome{Raw: raw, Result: result}, nil
}

// Run makes doc the session's current document and analyzes it under a new
// generation. If a newer document arrives meanwhile the outcome is discarded
// and session.ErrStale is returned.
func (p *Pipeline) Run(ctx context.Context, sess *session.Session, doc *extract.Document) (*session.Snapshot, error) {
	gen, err := sess.SelectDocument(doc)
	if err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("session.id", sess.ID()),
		attribute.Int64("session.generation", int64(gen)),
	))
	defer span.End()

	log := logger.WithFields(p.logger, logger.SessionFields(sess.ID(), gen)...)

	raw, err := p.analyze(ctx, doc, log, func() bool { return sess.MarkAnalyzing(gen) })
	if err != nil {
		if errors.Is(err, session.ErrStale) || !sess.Fail(gen, err) {
			log.Info("dropping outcome", zap.String("reason", "superseded by a newer resume"))
			return nil, session.ErrStale
		}
		failSpan(span, err)
		return nil, err
	}

	if !sess.Complete(gen, raw, p.engine) {
		log.Info("dropping outcome", zap.String("reason", "superseded by a newer resume"))
		return nil, session.ErrStale
	}

	snap := sess.Snapshot()
	if snap.Result != nil {
		log.Info("analysis ready",
			zap.Int("score", snap.Result.ResumeScore),
			zap.Bool("can_submit", snap.Result.SubmissionEligibility.CanSubmit),
		)
	}
	return &snap, nil
}

// analyze runs extract, prompt and model call. extracted, when set, is called
// between extraction and the model call; returning false aborts with
// session.ErrStale.
func (p *Pipeline) analyze(ctx context.Context, doc *extract.Document, log *zap.Logger, extracted func() bool) (*ai.RawAnalysis, error) {
	if p.analyzer == nil {
		return nil, errors.New("no analyzer configured")
	}

	text, err := p.extract(ctx, doc, log)
	if err != nil {
		return nil, err
	}

	if extracted != nil && !extracted() {
		return nil, session.ErrStale
	}

	return p.request(ctx, prompt.Build(text, p.jobDescription), log)
}

func (p *Pipeline) extract(ctx context.Context, doc *extract.Document, log *zap.Logger) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	name := ""
	if doc != nil {
		name = doc.Name
		span.SetAttributes(
			attribute.String("document.media_type", doc.MediaType),
			attribute.Int64("document.size", doc.Size),
		)
	}

	log.Debug("extracting resume text", zap.String(logger.FieldDocument, name))

	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		failSpan(span, err)
		log.Warn("extracting resume text", zap.String(logger.FieldDocument, name), zap.Error(err))
		return "", err
	}

	span.SetAttributes(attribute.Int("text.length", len(text)))
	return text, nil
}

func (p *Pipeline) request(ctx context.Context, rendered string, log *zap.Logger) (*ai.RawAnalysis, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.request_analysis")
	defer span.End()

	start := time.Now()
	raw, err := p.analyzer.RequestAnalysis(ctx, rendered)
	if err != nil {
		failSpan(span, err)
		log.Warn("requesting analysis",
			zap.String("kind", ai.Kind(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("requesting analysis: %w", err)
	}

	log.Debug("analysis received", zap.Duration("elapsed", time.Since(start)))
	return raw, nil
}

func (p *Pipeline) evaluate(ctx context.Context, raw *ai.RawAnalysis, profile applicant.Profile, resumePresent bool) policy.Result {
	_, span := p.tracer.Start(ctx, "pipeline.evaluate")
	defer span.End()

	result := p.engine.Evaluate(raw, profile.Fields(), resumePresent)
	span.SetAttributes(
		attribute.Int("result.score", result.ResumeScore),
		attribute.Bool("result.can_submit", result.SubmissionEligibility.CanSubmit),
	)

	p.logger.Info("analysis ready",
		zap.Int("score", result.ResumeScore),
		zap.Bool("can_submit", result.SubmissionEligibility.CanSubmit),
		zap.Strings("missing_fields", result.SubmissionEligibility.MissingFields),
	)
	return result
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
