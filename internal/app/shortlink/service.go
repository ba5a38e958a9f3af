package shortlink

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sltrace "shortlink.local/internal/platform/trace"
)

var tracer = otel.Tracer("shortlink.local/internal/app/shortlink")

const (
	defaultMaxCodeLength = 12
	defaultEscalateAfter = 5
	defaultMaxAttempts   = 64
)

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	// CodeLength is the length of freshly generated codes (default 6).
	CodeLength int
	// MaxCodeLength caps length escalation (default 12).
	MaxCodeLength int
	// EscalateAfter consecutive collisions at one length grow the length by one (default 5).
	EscalateAfter int
	// MaxAttempts bounds the retry loop; Shorten fails with ErrCodeSpaceExhausted past it (default 64).
	MaxAttempts int

	Validator   URLValidator // default RequireURL
	Recorder    Recorder     // default NopRecorder
	OnCollision func(length int)
}

// Service turns destinations into short codes and back.
type Service struct {
	store       Store
	gen         Generator
	rec         Recorder
	validate    URLValidator
	onCollision func(length int)

	codeLen       int
	maxLen        int
	escalateAfter int
	maxAttempts   int
}

func NewService(store Store, gen Generator, opts Options) *Service {
	s := &Service{
		store:         store,
		gen:           gen,
		rec:           opts.Recorder,
		validate:      opts.Validator,
		onCollision:   opts.OnCollision,
		codeLen:       opts.CodeLength,
		maxLen:        opts.MaxCodeLength,
		escalateAfter: opts.EscalateAfter,
		maxAttempts:   opts.MaxAttempts,
	}
	if s.gen == nil {
		s.gen = NewRandomGenerator()
	}
	if s.rec == nil {
		s.rec = NopRecorder{}
	}
	if s.validate == nil {
		s.validate = RequireURL
	}
	if s.onCollision == nil {
		s.onCollision = func(int) {}
	}
	if s.codeLen <= 0 {
		s.codeLen = DefaultCodeLength
	}
	s.codeLen = min(s.codeLen, MaxCodeLength)
	if s.maxLen <= 0 {
		s.maxLen = max(defaultMaxCodeLength, s.codeLen)
	}
	s.maxLen = min(max(s.maxLen, s.codeLen), MaxCodeLength)
	if s.escalateAfter <= 0 {
		s.escalateAfter = defaultEscalateAfter
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	return s
}

// Shorten binds destinationURL to a new, unused short code and returns the code.
//
// Collisions are retried with fresh candidates; after EscalateAfter consecutive
// collisions the code length grows by one (up to MaxCodeLength). The same destination
// shortened twice gets two different codes.
func (s *Service) Shorten(ctx context.Context, destinationURL string) (string, error) {
	if err := s.validate(destinationURL); err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "shortlink.Shorten")
	defer span.End()

	length := s.codeLen
	streak := 0
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.gen.Generate(length)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "generate code")
			return "", fmt.Errorf("generate code: %w", err)
		}
		if !IsCode(code) || IsReserved(code) {
			continue
		}

		ok, err := s.store.InsertIfAbsent(ctx, code, destinationURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert")
			return "", fmt.Errorf("%w: insert %s: %w", ErrStorage, code, err)
		}
		if ok {
			span.SetAttributes(
				sltrace.AttrCode.String(code),
				sltrace.AttrAttempts.Int(attempt),
			)
			s.rec.LinkCreated(Link{Code: code, URL: destinationURL})
			return code, nil
		}

		s.onCollision(length)
		slog.Debug("short code collision", "code", code, "attempt", attempt, "length", length)
		streak++
		if streak >= s.escalateAfter && length < s.maxLen {
			length++
			streak = 0
			slog.Warn("short code length escalated", "length", length, "attempt", attempt)
		}
	}

	span.SetStatus(codes.Error, ErrCodeSpaceExhausted.Error())
	slog.Error("short code allocation gave up", "attempts", s.maxAttempts, "length", length)
	return "", ErrCodeSpaceExhausted
}

// Resolve returns the destination bound to code.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	if !IsCode(code) {
		return "", ErrNotFound
	}

	ctx, span := tracer.Start(ctx, "shortlink.Resolve",
		trace.WithAttributes(sltrace.AttrCode.String(code)))
	defer span.End()

	url, found, err := s.store.Lookup(ctx, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup")
		return "", fmt.Errorf("%w: lookup %s: %w", ErrStorage, code, err)
	}
	if !found {
		return "", ErrNotFound
	}
	s.rec.Redirected(Link{Code: code, URL: url})
	return url, nil
}

// ListAll returns every binding in insertion order. It has no side effects.
func (s *Service) ListAll(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "shortlink.ListAll")
	defer span.End()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
		return nil, fmt.Errorf("%w: snapshot: %w", ErrStorage, err)
	}
	span.SetAttributes(sltrace.AttrCount.Int(len(snap)))
	return snap, nil
}
