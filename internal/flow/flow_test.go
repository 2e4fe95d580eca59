package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/handoff"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
)

type identifyFunc func(ctx context.Context, imageData string) (*domain.IdentificationResult, error)

func (f identifyFunc) Identify(ctx context.Context, imageData string) (*domain.IdentificationResult, error) {
	return f(ctx, imageData)
}

func sessionHandoff(mem *kv.Memory, sid string) *handoff.Store {
	return handoff.New(kv.NewNamespace(mem, kv.SessionPrefix(sid)), logger.Nop())
}

func TestSubmitPublishesAndRedirects(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	ho := sessionHandoff(mem, "s1")

	f := New(identifyFunc(func(context.Context, string) (*domain.IdentificationResult, error) {
		return &domain.IdentificationResult{ID: "artwork-1", Title: "Starry Night", Author: "Vincent van Gogh"}, nil
	}), metrics.New(), logger.Nop(), "/static/placeholder.svg")

	out, err := f.Submit(ctx, "s1", ho, "QUJD")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Redirect != "/artwork?id=artwork-1" {
		t.Errorf("Redirect = %q", out.Redirect)
	}
	if out.Record.Artist != "Vincent van Gogh" || out.Record.ImageURL != "/static/placeholder.svg" {
		t.Errorf("Record = %+v", out.Record)
	}
	if got, ok := ho.Consume(ctx, "artwork-1"); !ok || got.Title != "Starry Night" {
		t.Errorf("handoff = %+v, %v", got, ok)
	}
}

func TestSubmitErrorPublishesNothing(t *testing.T) {
	mem := kv.NewMemory()
	f := New(identifyFunc(func(context.Context, string) (*domain.IdentificationResult, error) {
		return nil, &identify.HTTPError{Status: 500, Message: "API Error: 500 - rate limited"}
	}), nil, logger.Nop(), "")

	_, err := f.Submit(context.Background(), "s1", sessionHandoff(mem, "s1"), "QUJD")

	var httpErr *identify.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Message != "API Error: 500 - rate limited" {
		t.Fatalf("err = %v, want the webhook HTTPError", err)
	}
	if mem.Len() != 0 {
		t.Errorf("failed submission wrote %d keys", mem.Len())
	}
}

func TestOlderSubmissionIsSuperseded(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	ho := sessionHandoff(mem, "s1")

	entered := make(chan struct{})
	release := make(chan struct{})

	f := New(identifyFunc(func(_ context.Context, img string) (*domain.IdentificationResult, error) {
		if img == "slow" {
			close(entered)
			<-release
			return &domain.IdentificationResult{ID: "old"}, nil
		}
		return &domain.IdentificationResult{ID: "new"}, nil
	}), metrics.New(), logger.Nop(), "")

	var (
		wg     sync.WaitGroup
		oldErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, oldErr = f.Submit(ctx, "s1", ho, "slow")
	}()

	<-entered
	if _, err := f.Submit(ctx, "s1", ho, "fast"); err != nil {
		t.Fatalf("newer Submit: %v", err)
	}
	close(release)
	wg.Wait()

	if !errors.Is(oldErr, ErrSuperseded) {
		t.Errorf("older Submit err = %v, want ErrSuperseded", oldErr)
	}
	if _, ok := ho.Consume(ctx, "old"); ok {
		t.Error("superseded result must not be published")
	}
	if _, ok := ho.Consume(ctx, "new"); !ok {
		t.Error("newest result should be published")
	}
	if n := f.tokens.inFlight(); n != 0 {
		t.Errorf("%d sessions still tracked after both returned", n)
	}
}

func TestOtherSessionsDoNotSupersede(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	entered := make(chan struct{})
	release := make(chan struct{})

	f := New(identifyFunc(func(_ context.Context, img string) (*domain.IdentificationResult, error) {
		if img == "slow" {
			close(entered)
			<-release
		}
		return &domain.IdentificationResult{ID: img}, nil
	}), nil, logger.Nop(), "")

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx, "s1", sessionHandoff(mem, "s1"), "slow")
		done <- err
	}()

	<-entered
	if _, err := f.Submit(ctx, "s2", sessionHandoff(mem, "s2"), "fast"); err != nil {
		t.Fatalf("s2 Submit: %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Errorf("s1 Submit err = %v, want nil", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeSuccess},
		{ErrSuperseded, metrics.OutcomeSuperseded},
		{&identify.ConfigurationError{Reason: "x"}, metrics.OutcomeConfiguration},
		{&identify.HTTPError{Status: 500}, metrics.OutcomeHTTPError},
		{identify.ErrEmptyResponse, metrics.OutcomeEmpty},
		{&identify.MalformedResponseError{Detail: "x"}, metrics.OutcomeMalformed},
		{&identify.TransportError{Err: errors.New("dial")}, metrics.OutcomeTransport},
		{errors.New("boom"), metrics.OutcomeOther},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
