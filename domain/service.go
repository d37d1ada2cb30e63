package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ANTOSOJAN/task-management-system/domain"

// Service implements the board and task operations. Every operation takes the
// verified identity of the caller, nil meaning anonymous.
type Service struct {
	store  Store
	claims TitleClaims
	events ActivityEmitter
	log    *log.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// Option customises a Service.
type Option func(*Service)

// WithTitleClaims enables short-lived task title claims on add-task.
func WithTitleClaims(c TitleClaims) Option {
	return func(s *Service) { s.claims = c }
}

// WithActivityEmitter publishes an Activity after every successful mutation.
func WithActivityEmitter(e ActivityEmitter) Option {
	return func(s *Service) { s.events = e }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator of board and task ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a Service backed by store.
func NewService(store Store, logger *log.Logger, opts ...Option) *Service {
	if store == nil {
		panic("domain.NewService: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Service{
		store:  store,
		log:    logger,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  newDocumentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// EnsureUser returns the caller's user record, creating it on first use.
func (s *Service) EnsureUser(ctx context.Context, id Identity) (*User, error) {
	u, err := s.store.GetUser(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	u = &User{Email: id.Email, UserID: id.UserID, Boards: []string{}}
	if err := s.store.CreateUser(ctx, *u); err != nil {
		if errors.Is(err, ErrConcurrencyConflict) {
			// created by a concurrent request
			u, err = s.store.GetUser(ctx, id.Email)
			if err == nil && u == nil {
				err = fmt.Errorf("user %s: %w", id.Email, ErrNotFound)
			}
			return u, err
		}
		return nil, err
	}
	s.log.WithFields(log.Fields{"user": id.Email, "uid": id.UserID}).Info("user record created")
	return u, nil
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "board."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, out Outcome) {
	if out.Failed() {
		span.SetStatus(codes.Error, string(out.Tag))
	}
	span.SetAttributes(attribute.String("outcome.path", out.Path))
	span.End()
}

func (s *Service) storeFailure(op string, fields log.Fields, err error) {
	s.log.WithFields(fields).WithField("op", op).WithError(err).Error("store call failed")
}

func (s *Service) emit(a Activity) {
	if s.events == nil {
		return
	}
	a.Time = s.now().UTC()
	s.events.Emit(a)
}

// creatorEmails resolves user ids to emails, memoised for one request.
type creatorEmails struct {
	s     *Service
	cache map[string]string
}

func (s *Service) newCreatorEmails() *creatorEmails {
	return &creatorEmails{s: s, cache: make(map[string]string)}
}

func (c *creatorEmails) lookup(ctx context.Context, userID string) string {
	if email, ok := c.cache[userID]; ok {
		return email
	}
	email := UnknownEmail
	u, err := c.s.store.FindUserByID(ctx, userID)
	switch {
	case err != nil:
		c.s.log.WithField("uid", userID).WithError(err).Warn("creator lookup failed")
	case u != nil:
		email = u.Email
	}
	c.cache[userID] = email
	return email
}

// NormalizeEmail trims and lower-cases an email address from user input.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmails normalises, drops blanks and de-duplicates, keeping first-seen order.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
