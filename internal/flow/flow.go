// Package flow runs one identification from upload to handoff: identify the
// image, publish the result for the session, and point the caller at the
// artwork page.
package flow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
)

// ErrSuperseded is returned when a newer submission from the same session
// started while this one was waiting on the webhook. Its result is dropped.
var ErrSuperseded = errors.New("identification superseded by a newer request")

// Identifier is the webhook client.
type Identifier interface {
	Identify(ctx context.Context, imageData string) (*domain.IdentificationResult, error)
}

// Publisher is the session handoff.
type Publisher interface {
	Publish(ctx context.Context, id string, result domain.IdentificationResult) error
}

// Outcome is a published identification.
type Outcome struct {
	ID       string
	Result   domain.IdentificationResult
	Record   domain.ArtworkRecord
	Redirect string
}

type Flow struct {
	identifier       Identifier
	metrics          *metrics.Metrics
	logger           logger.Logger
	placeholderImage string
	tokens           *tokens
}

func New(identifier Identifier, m *metrics.Metrics, log logger.Logger, placeholderImage string) *Flow {
	return &Flow{
		identifier:       identifier,
		metrics:          m,
		logger:           log,
		placeholderImage: placeholderImage,
		tokens:           newTokens(),
	}
}

// ArtworkPath is where the result of id is shown.
func ArtworkPath(id string) string {
	return "/artwork?id=" + url.QueryEscape(id)
}

// Submit identifies imageData for sessionID and publishes the result to
// handoff. A submission that returns after a newer one from the same session
// started gets ErrSuperseded and publishes nothing.
func (f *Flow) Submit(ctx context.Context, sessionID string, handoff Publisher, imageData string) (Outcome, error) {
	token := f.tokens.begin(sessionID)
	defer f.tokens.finish(sessionID, token)

	log := f.logger.With(logger.String("session_id", sessionID))

	start := time.Now()
	result, err := f.identifier.Identify(ctx, imageData)
	took := time.Since(start)

	if !f.tokens.current(sessionID, token) {
		f.metrics.ObserveIdentification(metrics.OutcomeSuperseded, took)
		log.Info("dropping superseded identification", logger.Duration("took", took))
		return Outcome{}, ErrSuperseded
	}

	if err != nil {
		f.metrics.ObserveIdentification(Classify(err), took)
		log.Warn("identification failed",
			logger.Duration("took", took),
			logger.Error(err))
		return Outcome{}, err
	}

	if err := handoff.Publish(ctx, result.ID, *result); err != nil {
		f.metrics.ObserveIdentification(metrics.OutcomeOther, took)
		return Outcome{}, fmt.Errorf("failed to hand off result: %w", err)
	}

	f.metrics.ObserveIdentification(metrics.OutcomeSuccess, took)
	log.Info("artwork identified",
		logger.String("artwork_id", result.ID),
		logger.String("title", result.Title),
		logger.Duration("took", took))

	return Outcome{
		ID:       result.ID,
		Result:   *result,
		Record:   result.ToArtworkRecord(result.ID, f.placeholderImage),
		Redirect: ArtworkPath(result.ID),
	}, nil
}

// Classify maps an identification error to its metrics outcome label.
func Classify(err error) string {
	var (
		cfgErr       *identify.ConfigurationError
		httpErr      *identify.HTTPError
		malformedErr *identify.MalformedResponseError
		transportErr *identify.TransportError
	)

	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrSuperseded):
		return metrics.OutcomeSuperseded
	case errors.As(err, &cfgErr):
		return metrics.OutcomeConfiguration
	case errors.As(err, &httpErr):
		return metrics.OutcomeHTTPError
	case errors.Is(err, identify.ErrEmptyResponse):
		return metrics.OutcomeEmpty
	case errors.As(err, &malformedErr):
		return metrics.OutcomeMalformed
	case errors.As(err, &transportErr):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeOther
	}
}
