package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/pkg/tracing"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeniedMessage is shown for every denied or expired session.
const DeniedMessage = "Access Expired or Denied"

const subscriberBuffer = 8

type SessionConfig struct {
	VerificationDelay time.Duration
	TickInterval      time.Duration
	// Retention is how long a denied or expired session stays readable.
	Retention time.Duration
}

// SessionSnapshot is the client view of a session. Denied and expired
// sessions look identical.
type SessionSnapshot struct {
	ID             domain.SessionID    `json:"id"`
	ContentID      domain.ContentID    `json:"content_id"`
	Presentation   domain.Presentation `json:"presentation"`
	Token          string              `json:"token,omitempty"`
	Remaining      int                 `json:"remaining"`
	Lifetime       int                 `json:"lifetime"`
	OpenedAt       time.Time           `json:"opened_at"`
	Title          string              `json:"title,omitempty"`
	Description    string              `json:"description,omitempty"`
	Viewer         *domain.Viewer      `json:"viewer,omitempty"`
	WatermarkLines []string            `json:"watermark_lines,omitempty"`
	Message        string              `json:"message,omitempty"`

	state  domain.SessionState
	reason domain.DenyReason
}

type SessionService interface {
	// OpenSession blocks through verification. Cancelling ctx before it
	// completes discards the session without logging anything. A session
	// closed or shut down during verification yields ErrSessionClosed.
	OpenSession(ctx context.Context, user domain.User, contentID domain.ContentID) (*SessionSnapshot, error)
	GetSession(user domain.User, id domain.SessionID) (*SessionSnapshot, error)
	CloseSession(user domain.User, id domain.SessionID) error
	// Tick advances the countdown of a granted session by one step.
	Tick(id domain.SessionID) (*SessionSnapshot, error)
	// Subscribe streams snapshots until the session ends or cancel is called.
	Subscribe(user domain.User, id domain.SessionID) (<-chan SessionSnapshot, func(), error)
	RecordDownloadAttempt(ctx context.Context, user domain.User, id domain.SessionID) error
	// PurgeEnded drops sessions that ended more than Retention ago.
	PurgeEnded() int
	Run(ctx context.Context)
	Shutdown()
}

type sessionEntry struct {
	session domain.Session
	user    domain.User
	item    *domain.ContentItem

	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	subs     map[chan SessionSnapshot]struct{}
	endedAt  time.Time
}

func (e *sessionEntry) halt() {
	e.stopOnce.Do(func() { close(e.stop) })
}

type sessionService struct {
	store   ports.Store
	audit   AuditService
	cfg     SessionConfig
	clock   clock.Clock
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[domain.SessionID]*sessionEntry
}

func NewSessionService(
	store ports.Store,
	audit AuditService,
	cfg SessionConfig,
	clk clock.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) SessionService {
	return &sessionService{
		store:    store,
		audit:    audit,
		cfg:      cfg,
		clock:    clk,
		metrics:  metrics,
		logger:   logger,
		sessions: make(map[domain.SessionID]*sessionEntry),
	}
}

func (s *sessionService) OpenSession(ctx context.Context, user domain.User, contentID domain.ContentID) (*SessionSnapshot, error) {
	ctx, span := tracing.TraceSession(ctx, "open", string(user.ID), string(contentID))
	defer span.End()

	start := s.clock.Now()
	vctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := domain.NewSession(domain.SessionID(uuid.NewString()), user.ID, contentID, start).
		Apply(domain.BeginVerification{})
	tracing.AddSpanAttributes(ctx, tracing.SessionIDKey.String(string(session.ID)))

	s.mu.Lock()
	s.sessions[session.ID] = &sessionEntry{
		session: session,
		user:    user,
		cancel:  cancel,
		stop:    make(chan struct{}),
		subs:    make(map[chan SessionSnapshot]struct{}),
	}
	s.mu.Unlock()
	s.metrics.SessionOpened()

	if err := s.wait(vctx, s.cfg.VerificationDelay); err != nil {
		s.discard(session.ID)
		s.logger.Debugw("verification abandoned", "session_id", session.ID, "error", err)
		return nil, abandoned(ctx, err)
	}

	item, err := s.resolve(vctx, contentID)
	if err != nil {
		s.discard(session.ID)
		tracing.RecordError(ctx, err)
		return nil, abandoned(ctx, err)
	}

	if item == nil || !item.Allows(user.Role) {
		reason := domain.DenyNotFound
		if item != nil {
			reason = domain.DenyForbidden
		}
		snap, ok := s.complete(session.ID, domain.VerificationComplete{Granted: false, Reason: reason}, nil)
		if !ok {
			return nil, abandoned(ctx, context.Canceled)
		}
		s.metrics.SessionDenied(reason)
		tracing.AddSpanAttributes(ctx, tracing.OutcomeKey.String("denied"))
		s.logger.Infow("session denied",
			"session_id", session.ID,
			"user_id", user.ID,
			"content_id", contentID,
			"reason", reason,
		)
		return snap, nil
	}

	snap, ok := s.complete(session.ID, domain.VerificationComplete{Granted: true, Token: newAccessToken()}, item)
	if !ok {
		return nil, abandoned(ctx, context.Canceled)
	}
	if _, err := s.audit.Record(ctx, user, *item, domain.ActionView); err != nil {
		s.discard(session.ID)
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("record view: %w", err)
	}

	s.startCountdown(session.ID)
	s.metrics.SessionGranted(s.clock.Since(start))
	tracing.AddSpanAttributes(ctx, tracing.OutcomeKey.String("granted"))
	s.logger.Infow("session granted",
		"session_id", session.ID,
		"user_id", user.ID,
		"content_id", contentID,
	)
	return snap, nil
}

// abandoned tells a caller that went away apart from one whose session was
// closed or shut down underneath it.
func abandoned(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrSessionClosed
	}
	return err
}

func (s *sessionService) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *sessionService) resolve(ctx context.Context, id domain.ContentID) (*domain.ContentItem, error) {
	items, err := s.store.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	for _, item := range items {
		if item.ID == id {
			found := item.Clone()
			return &found, nil
		}
	}
	return nil, nil
}

// complete applies the verification outcome. It reports false when the
// session was closed while verifying.
func (s *sessionService) complete(id domain.SessionID, ev domain.VerificationComplete, item *domain.ContentItem) (*SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.session = entry.session.Apply(ev)
	if ev.Granted {
		entry.item = item
		s.metrics.SetActiveSessions(s.activeLocked())
	} else {
		entry.endedAt = s.clock.Now()
	}

	snap := s.snapshotLocked(entry)
	s.publishLocked(entry, snap)
	return &snap, true
}

func (s *sessionService) startCountdown(id domain.SessionID) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	ticker := s.clock.Ticker(s.cfg.TickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-entry.stop:
				return
			case <-ticker.C:
				snap, err := s.Tick(id)
				if err != nil || snap.state != domain.StateGranted {
					return
				}
			}
		}
	}()
}

func (s *sessionService) Tick(id domain.SessionID) (*SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	before := entry.session
	entry.session = entry.session.Apply(domain.Tick{})
	if entry.session == before {
		snap := s.snapshotLocked(entry)
		return &snap, nil
	}

	if entry.session.State == domain.StateExpired {
		entry.endedAt = s.clock.Now()
		entry.halt()
		s.metrics.SessionExpired()
		s.metrics.SetActiveSessions(s.activeLocked())
		s.logger.Infow("session expired",
			"session_id", id,
			"user_id", entry.user.ID,
			"content_id", entry.session.ContentID,
		)
	}

	snap := s.snapshotLocked(entry)
	s.publishLocked(entry, snap)
	return &snap, nil
}

func (s *sessionService) GetSession(user domain.User, id domain.SessionID) (*SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(user, id)
	if err != nil {
		return nil, err
	}
	snap := s.snapshotLocked(entry)
	return &snap, nil
}

func (s *sessionService) CloseSession(user domain.User, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(user, id); err != nil {
		return err
	}
	s.removeLocked(id)
	s.logger.Debugw("session closed", "session_id", id, "user_id", user.ID)
	return nil
}

func (s *sessionService) Subscribe(user domain.User, id domain.SessionID) (<-chan SessionSnapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(user, id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan SessionSnapshot, subscriberBuffer)
	ch <- s.snapshotLocked(entry)
	if entry.session.State.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}
	entry.subs[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := entry.subs[ch]; ok {
			delete(entry.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (s *sessionService) RecordDownloadAttempt(ctx context.Context, user domain.User, id domain.SessionID) error {
	s.mu.Lock()
	entry, err := s.lookupLocked(user, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	granted := entry.session.State == domain.StateGranted
	var item domain.ContentItem
	if entry.item != nil {
		item = *entry.item
	}
	s.mu.Unlock()

	s.metrics.DownloadBlocked()
	if granted {
		if _, err := s.audit.Record(ctx, user, item, domain.ActionDownloadAttempt); err != nil {
			return fmt.Errorf("record download attempt: %w", err)
		}
		s.logger.Warnw("download attempt blocked",
			"session_id", id,
			"user_id", user.ID,
			"content_id", item.ID,
		)
	}
	return domain.ErrDownloadBlocked
}

func (s *sessionService) PurgeEnded() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	purged := 0
	for id, entry := range s.sessions {
		if entry.endedAt.IsZero() || now.Sub(entry.endedAt) < s.cfg.Retention {
			continue
		}
		s.removeLocked(id)
		purged++
	}
	return purged
}

// Run purges ended sessions until ctx is cancelled.
func (s *sessionService) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.cfg.Retention)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PurgeEnded(); n > 0 {
				s.logger.Debugw("purged ended sessions", "count", n)
			}
		}
	}
}

func (s *sessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.sessions {
		s.removeLocked(id)
	}
}

func (s *sessionService) lookupLocked(user domain.User, id domain.SessionID) (*sessionEntry, error) {
	entry, ok := s.sessions[id]
	if !ok || entry.user.ID != user.ID {
		return nil, domain.ErrSessionNotFound
	}
	return entry, nil
}

func (s *sessionService) discard(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *sessionService) removeLocked(id domain.SessionID) {
	entry, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)

	entry.cancel()
	entry.halt()
	for ch := range entry.subs {
		close(ch)
	}
	entry.subs = nil

	if entry.session.State == domain.StateGranted {
		s.metrics.SetActiveSessions(s.activeLocked())
	}
}

func (s *sessionService) activeLocked() int {
	n := 0
	for _, entry := range s.sessions {
		if entry.session.State == domain.StateGranted {
			n++
		}
	}
	return n
}

func (s *sessionService) snapshotLocked(entry *sessionEntry) SessionSnapshot {
	snap := SessionSnapshot{
		ID:           entry.session.ID,
		ContentID:    entry.session.ContentID,
		Presentation: entry.session.Presentation(),
		Remaining:    entry.session.Remaining,
		Lifetime:     domain.SessionLifetime,
		OpenedAt:     entry.session.OpenedAt,
		state:        entry.session.State,
		reason:       entry.session.Reason,
	}

	switch snap.Presentation {
	case domain.PresentViewer:
		snap.Token = entry.session.Token
		if entry.item != nil {
			viewer := domain.NewViewer(*entry.item, entry.user)
			snap.Title = entry.item.Title
			snap.Description = entry.item.Description
			snap.Viewer = &viewer
			snap.WatermarkLines = viewer.Watermark.Lines(s.clock.Now())
		}
	case domain.PresentDenied:
		snap.Message = DeniedMessage
	}
	return snap
}

// publishLocked fans snap out without blocking. Slow subscribers miss
// intermediate snapshots but always receive the final one, after which every
// channel is closed.
func (s *sessionService) publishLocked(entry *sessionEntry, snap SessionSnapshot) {
	terminal := snap.state.Terminal()
	for ch := range entry.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		if !terminal {
			continue
		}
		// Make room for the final snapshot.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
	if terminal {
		for ch := range entry.subs {
			close(ch)
		}
		entry.subs = map[chan SessionSnapshot]struct{}{}
	}
}

func newAccessToken() string {
	return uuid.NewString()[:8]
}
