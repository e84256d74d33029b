package checkin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gatherly/backend/internal/metrics"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notify"
)

// Outcome classifies a scan or manual check-in attempt.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAlreadyChecked Outcome = "already-checked"
	OutcomeNotFound       Outcome = "not-found"
	OutcomeInvalidQR      Outcome = "invalid-qr"
)

// ErrEventNotFound reports a stats or door-list request for an unknown event.
var ErrEventNotFound = errors.New("event not found")

// ErrStoreUnavailable wraps transient directory failures. Callers must treat
// it as retryable and never render it as "not registered".
var ErrStoreUnavailable = errors.New("registration store unavailable")

// ScanResult is the typed outcome returned to the scanning operator.
type ScanResult struct {
	Outcome      Outcome              `json:"outcome"`
	Message      string               `json:"message"`
	Registration *models.Registration `json:"registration,omitempty"`
	Role         *RoleInfo            `json:"role,omitempty"`
	Event        *models.Event        `json:"event,omitempty"`
}

// Stats is the derived live view of an event's registrations.
// AwaitingCheckIn + CheckedIn == Total holds for every observed state because
// all three derive from one aggregate read.
type Stats struct {
	Total           int `json:"total"`
	AwaitingCheckIn int `json:"awaiting_check_in"`
	CheckedIn       int `json:"checked_in"`
	Capacity        int `json:"capacity"`
	AvailableSpots  int `json:"available_spots"`
	OccupancyRate   int `json:"occupancy_rate"`
}

// DoorListEntry pairs a registration with its resolved role for door staff.
type DoorListEntry struct {
	Registration models.Registration `json:"registration"`
	Role         RoleInfo            `json:"role"`
}

// EventStore is the read-only surface the engine needs from event management.
type EventStore interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListSpeakers(ctx context.Context, eventID string) ([]string, error)
}

// RegistrationStore is the contract the engine requires from the registration
// directory: reads plus one conditional write. The engine never assumes it
// holds a lock between read and write; ConditionalSetCheckedIn applies only
// while the stored record still has checked_in = FALSE.
type RegistrationStore interface {
	Get(ctx context.Context, eventID, userID string) (*models.Registration, error)
	FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, error)
	List(ctx context.Context, eventID string) ([]models.Registration, error)
	Counts(ctx context.Context, eventID string) (total, checkedIn int, err error)
	ConditionalSetCheckedIn(ctx context.Context, eventID, userID, actorID string) (applied bool, current *models.Registration, err error)
}

// Notifier receives arrival alerts for alert-worthy roles. Failures are
// logged and swallowed; delivery never affects the check-in outcome.
type Notifier interface {
	AttendeeArrived(ctx context.Context, msg notify.Message) error
}

// Broadcaster pushes live updates to door dashboards.
type Broadcaster interface {
	BroadcastCheckIn(eventID string, result ScanResult)
	BroadcastStats(eventID string, stats Stats)
}

// alertRoles are the role keys whose arrivals fan out to chat channels.
var alertRoles = map[string]struct{}{
	"vip":     {},
	"speaker": {},
}

const defaultStoreTimeout = 5 * time.Second

// Service is the check-in verification and state engine.
type Service struct {
	events       EventStore
	regs         RegistrationStore
	codec        *Codec
	notifier     Notifier
	live         Broadcaster
	storeTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier wires arrival alert delivery.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithBroadcaster wires live dashboard updates.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.live = b }
}

// WithStoreTimeout bounds each directory operation.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates the engine over the given stores.
func NewService(events EventStore, regs RegistrationStore, codec *Codec, opts ...Option) *Service {
	s := &Service{
		events:       events,
		regs:         regs,
		codec:        codec,
		storeTimeout: defaultStoreTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan resolves a raw payload against the selected event context and runs the
// check-in transition. Invalid payloads yield the invalid-qr outcome, never an
// error.
func (s *Service) Scan(ctx context.Context, rawPayload, currentEventID, actorID string) (ScanResult, error) {
	id, err := s.codec.Parse(rawPayload, currentEventID)
	if err != nil {
		metrics.ScansTotal.WithLabelValues(string(OutcomeInvalidQR)).Inc()
		return ScanResult{
			Outcome: OutcomeInvalidQR,
			Message: "unrecognized code, rescan or use the email lookup",
		}, nil
	}
	return s.CheckIn(ctx, id.EventID, id.UserID, actorID)
}

// CheckIn executes the Registered -> CheckedIn transition at most once for the
// identity. Concurrent attempts for the same identity produce exactly one
// success; losers observe already-checked with the winner's metadata.
func (s *Service) CheckIn(ctx context.Context, eventID, userID, actorID string) (ScanResult, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return ScanResult{}, err
	}
	if event == nil {
		metrics.ScansTotal.WithLabelValues(string(OutcomeNotFound)).Inc()
		return ScanResult{
			Outcome: OutcomeNotFound,
			Message: "unknown event, check the selected event",
		}, nil
	}

	reg, err := s.getRegistration(ctx, eventID, userID)
	if err != nil {
		return ScanResult{}, err
	}
	if reg == nil {
		metrics.ScansTotal.WithLabelValues(string(OutcomeNotFound)).Inc()
		return ScanResult{
			Outcome: OutcomeNotFound,
			Message: "not registered for this event",
			Event:   event,
		}, nil
	}

	role, err := s.resolveRole(ctx, reg)
	if err != nil {
		return ScanResult{}, err
	}

	if reg.CheckedIn {
		metrics.ScansTotal.WithLabelValues(string(OutcomeAlreadyChecked)).Inc()
		return s.alreadyChecked(event, reg, role), nil
	}

	applied, current, err := s.conditionalCheckIn(ctx, eventID, userID, actorID)
	if err != nil {
		return ScanResult{}, err
	}
	if current == nil {
		// Record deleted between read and write; a cancelled registration
		// cannot be checked in.
		metrics.ScansTotal.WithLabelValues(string(OutcomeNotFound)).Inc()
		return ScanResult{
			Outcome: OutcomeNotFound,
			Message: "not registered for this event",
			Event:   event,
		}, nil
	}
	if !applied {
		// Lost the race against another scanner: idempotent no-op carrying
		// the winner's metadata.
		metrics.ScansTotal.WithLabelValues(string(OutcomeAlreadyChecked)).Inc()
		return s.alreadyChecked(event, current, role), nil
	}

	metrics.ScansTotal.WithLabelValues(string(OutcomeSuccess)).Inc()
	metrics.CheckInsTotal.Inc()

	result := ScanResult{
		Outcome:      OutcomeSuccess,
		Message:      fmt.Sprintf("%s checked in", current.Name),
		Registration: current,
		Role:         &role,
		Event:        event,
	}
	s.afterCheckIn(event, current, role, result)
	return result, nil
}

// FindByEmail looks a registration up by attendee email for the manual door
// path. The returned registration has not been transitioned; callers follow
// up with CheckIn, which enforces the same conditional write.
func (s *Service) FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, *RoleInfo, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	reg, err := s.regs.FindByEmail(opCtx, eventID, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: find by email: %w", ErrStoreUnavailable, err)
	}
	if reg == nil {
		return nil, nil, nil
	}
	role, err := s.resolveRole(ctx, reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, &role, nil
}

// Stats derives the live counters for an event from a single aggregate read.
func (s *Service) Stats(ctx context.Context, eventID string) (Stats, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return Stats{}, err
	}
	if event == nil {
		return Stats{}, ErrEventNotFound
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	total, checkedIn, err := s.regs.Counts(opCtx, eventID)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: counts: %w", ErrStoreUnavailable, err)
	}

	occupancy := 0
	if event.Capacity > 0 {
		occupancy = int(math.Round(float64(checkedIn) / float64(event.Capacity) * 100))
	}
	available := event.Capacity - total
	if available < 0 {
		available = 0
	}
	return Stats{
		Total:           total,
		AwaitingCheckIn: total - checkedIn,
		CheckedIn:       checkedIn,
		Capacity:        event.Capacity,
		AvailableSpots:  available,
		OccupancyRate:   occupancy,
	}, nil
}

// DoorList returns the event's registrations with resolved roles, optionally
// filtered by role key, sorted by role priority then attendee name.
func (s *Service) DoorList(ctx context.Context, eventID, roleFilter string) ([]DoorListEntry, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	speakers, err := s.speakerSet(ctx, eventID)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	regs, err := s.regs.List(opCtx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: list registrations: %w", ErrStoreUnavailable, err)
	}

	roleFilter = strings.ToLower(strings.TrimSpace(roleFilter))
	entries := make([]DoorListEntry, 0, len(regs))
	for i := range regs {
		role := ResolveRole(&regs[i], speakers)
		if roleFilter != "" && role.Key != roleFilter {
			continue
		}
		entries = append(entries, DoorListEntry{Registration: regs[i], Role: role})
	}

	coll := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Role.Priority != entries[j].Role.Priority {
			return entries[i].Role.Priority < entries[j].Role.Priority
		}
		return coll.CompareString(entries[i].Registration.Name, entries[j].Registration.Name) < 0
	})
	return entries, nil
}

// Codec exposes the payload codec for handlers that generate codes and links.
func (s *Service) Codec() *Codec {
	return s.codec
}

func (s *Service) alreadyChecked(event *models.Event, reg *models.Registration, role RoleInfo) ScanResult {
	msg := fmt.Sprintf("%s is already checked in", reg.Name)
	if reg.CheckedInAt != nil {
		msg = fmt.Sprintf("%s already checked in at %s", reg.Name, reg.CheckedInAt.Format(time.Kitchen))
	}
	return ScanResult{
		Outcome:      OutcomeAlreadyChecked,
		Message:      msg,
		Registration: reg,
		Role:         &role,
		Event:        event,
	}
}

// afterCheckIn runs the success side-effects. Both the alert and the live
// stats push are best-effort: failures are logged, never surfaced to the
// scanning operator.
func (s *Service) afterCheckIn(event *models.Event, reg *models.Registration, role RoleInfo, result ScanResult) {
	if s.notifier != nil {
		if _, ok := alertRoles[role.Key]; ok {
			msg := notify.Message{
				Text:         fmt.Sprintf("%s (%s) just arrived at %s", reg.Name, role.Display, event.Name),
				EventID:      event.ID,
				EventName:    event.Name,
				AttendeeName: reg.Name,
				Role:         role.Key,
				Company:      reg.Work,
				Timestamp:    s.now(),
			}
			alertCtx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
			if err := s.notifier.AttendeeArrived(alertCtx, msg); err != nil {
				s.logger.Warn("arrival alert dispatch failed",
					zap.String("event_id", event.ID),
					zap.String("user_id", reg.UserID),
					zap.Error(err),
				)
			}
			cancel()
		}
	}

	if s.live != nil {
		s.live.BroadcastCheckIn(event.ID, result)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
			defer cancel()
			stats, err := s.Stats(ctx, event.ID)
			if err != nil {
				s.logger.Debug("live stats refresh failed", zap.String("event_id", event.ID), zap.Error(err))
				return
			}
			s.live.BroadcastStats(event.ID, stats)
		}()
	}
}

func (s *Service) resolveRole(ctx context.Context, reg *models.Registration) (RoleInfo, error) {
	speakers, err := s.speakerSet(ctx, reg.EventID)
	if err != nil {
		return RoleInfo{}, err
	}
	return ResolveRole(reg, speakers), nil
}

func (s *Service) speakerSet(ctx context.Context, eventID string) (map[string]struct{}, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	ids, err := s.events.ListSpeakers(opCtx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: list speakers: %w", ErrStoreUnavailable, err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (s *Service) getEvent(ctx context.Context, eventID string) (*models.Event, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	event, err := s.events.GetEvent(opCtx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: get event: %w", ErrStoreUnavailable, err)
	}
	return event, nil
}

func (s *Service) getRegistration(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	reg, err := s.regs.Get(opCtx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get registration: %w", ErrStoreUnavailable, err)
	}
	return reg, nil
}

func (s *Service) conditionalCheckIn(ctx context.Context, eventID, userID, actorID string) (bool, *models.Registration, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	applied, current, err := s.regs.ConditionalSetCheckedIn(opCtx, eventID, userID, actorID)
	if err != nil {
		return false, nil, fmt.Errorf("%w: conditional check-in: %w", ErrStoreUnavailable, err)
	}
	return applied, current, nil
}
