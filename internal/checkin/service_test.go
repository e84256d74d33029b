package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/internal/notify"
)

// fakeStore backs both the event and registration store interfaces in memory.
// ConditionalSetCheckedIn holds the lock across read and write, matching the
// atomicity of the SQL conditional update.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]*models.Event
	speakers map[string][]string
	regs     map[string]*models.Registration
	err      error
}

func newFakeStore(events []models.Event, regs []models.Registration) *fakeStore {
	f := &fakeStore{
		events:   make(map[string]*models.Event),
		speakers: make(map[string][]string),
		regs:     make(map[string]*models.Registration),
	}
	for i := range events {
		f.events[events[i].ID] = &events[i]
	}
	for i := range regs {
		r := regs[i]
		f.regs[r.EventID+"/"+r.UserID] = &r
	}
	return f
}

func (f *fakeStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.events[eventID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ListSpeakers(ctx context.Context, eventID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.speakers[eventID], nil
}

func (f *fakeStore) Get(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.regs[eventID+"/"+userID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.regs {
		if r.EventID == eventID && r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, eventID string) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Registration
	for _, r := range f.regs {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) Counts(ctx context.Context, eventID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, 0, f.err
	}
	total, checked := 0, 0
	for _, r := range f.regs {
		if r.EventID == eventID {
			total++
			if r.CheckedIn {
				checked++
			}
		}
	}
	return total, checked, nil
}

func (f *fakeStore) ConditionalSetCheckedIn(ctx context.Context, eventID, userID, actorID string) (bool, *models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, nil, f.err
	}
	r, ok := f.regs[eventID+"/"+userID]
	if !ok {
		return false, nil, nil
	}
	if r.CheckedIn {
		cp := *r
		return false, &cp, nil
	}
	now := time.Now().UTC()
	r.CheckedIn = true
	r.CheckedInAt = &now
	r.CheckedInBy = actorID
	r.Status = models.RegistrationStatusAttended
	cp := *r
	return true, &cp, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) AttendeeArrived(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func testEvent() models.Event {
	return models.Event{
		ID:       "evt1",
		Name:     "Founders Summit",
		Capacity: 3,
		Status:   models.EventStatusActive,
	}
}

func testRegistration(userID, name string) models.Registration {
	return models.Registration{
		EventID: "evt1",
		UserID:  userID,
		Name:    name,
		Email:   name + "@example.com",
		Status:  models.RegistrationStatusRegistered,
	}
}

func newTestService(t *testing.T, store *fakeStore, opts ...Option) *Service {
	t.Helper()
	return NewService(store, store, newTestCodec(t), opts...)
}

func TestServiceCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh check-in transitions exactly once", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		svc := newTestService(t, store)

		res, err := svc.CheckIn(ctx, "evt1", "u1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
		require.NotNil(t, res.Registration)
		assert.True(t, res.Registration.CheckedIn)
		assert.NotNil(t, res.Registration.CheckedInAt)
		assert.Equal(t, "staff1", res.Registration.CheckedInBy)
		assert.Equal(t, models.RegistrationStatusAttended, res.Registration.Status)
		require.NotNil(t, res.Role)
		assert.Equal(t, "attendee", res.Role.Key)
	})

	t.Run("second scan reports already-checked with winner metadata", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		svc := newTestService(t, store)

		_, err := svc.CheckIn(ctx, "evt1", "u1", "staff1")
		require.NoError(t, err)

		res, err := svc.CheckIn(ctx, "evt1", "u1", "staff2")
		require.NoError(t, err)
		assert.Equal(t, OutcomeAlreadyChecked, res.Outcome)
		require.NotNil(t, res.Registration)
		assert.Equal(t, "staff1", res.Registration.CheckedInBy)
		assert.Contains(t, res.Message, "already checked in")
	})

	t.Run("unknown event yields not-found outcome not error", func(t *testing.T) {
		store := newFakeStore(nil, nil)
		svc := newTestService(t, store)

		res, err := svc.CheckIn(ctx, "nope", "u1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
	})

	t.Run("unregistered user yields not-found with event attached", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, nil)
		svc := newTestService(t, store)

		res, err := svc.CheckIn(ctx, "evt1", "ghost", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotFound, res.Outcome)
		require.NotNil(t, res.Event)
		assert.Equal(t, "evt1", res.Event.ID)
	})

	t.Run("store failure surfaces as retryable, never not-found", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		store.err = errors.New("connection refused")
		svc := newTestService(t, store)

		_, err := svc.CheckIn(ctx, "evt1", "u1", "staff1")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("concurrent scans produce exactly one success", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		svc := newTestService(t, store)

		const n = 16
		results := make([]ScanResult, n)
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.CheckIn(ctx, "evt1", "u1", "staff1")
			}(i)
		}
		wg.Wait()

		successes := 0
		for i, res := range results {
			require.NoError(t, errs[i])
			switch res.Outcome {
			case OutcomeSuccess:
				successes++
			case OutcomeAlreadyChecked:
			default:
				t.Fatalf("unexpected outcome %s", res.Outcome)
			}
		}
		assert.Equal(t, 1, successes)
	})
}

func TestServiceScan(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid payload yields invalid-qr outcome", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, nil)
		svc := newTestService(t, store)

		res, err := svc.Scan(ctx, "??", "", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeInvalidQR, res.Outcome)
	})

	t.Run("composite payload checks in", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		svc := newTestService(t, store)

		res, err := svc.Scan(ctx, "evt1-u1", "", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
	})

	t.Run("bare payload scoped to selected event", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("attendee7", "bob")})
		svc := newTestService(t, store)

		res, err := svc.Scan(ctx, "attendee7", "evt1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
	})
}

func TestServiceAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("vip arrival notifies", func(t *testing.T) {
		vip := testRegistration("u1", "alice")
		vip.TicketType = "VIP Pass"
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{vip})
		notifier := &fakeNotifier{}
		svc := newTestService(t, store, WithNotifier(notifier))

		res, err := svc.CheckIn(ctx, "evt1", "u1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
		require.Equal(t, 1, notifier.count())
		assert.Equal(t, "vip", notifier.msgs[0].Role)
		assert.Equal(t, "Founders Summit", notifier.msgs[0].EventName)
	})

	t.Run("speaker arrival notifies", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("spk1", "carol")})
		store.speakers["evt1"] = []string{"spk1"}
		notifier := &fakeNotifier{}
		svc := newTestService(t, store, WithNotifier(notifier))

		_, err := svc.CheckIn(ctx, "evt1", "spk1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, 1, notifier.count())
	})

	t.Run("plain attendee arrival stays quiet", func(t *testing.T) {
		store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
		notifier := &fakeNotifier{}
		svc := newTestService(t, store, WithNotifier(notifier))

		_, err := svc.CheckIn(ctx, "evt1", "u1", "staff1")
		require.NoError(t, err)
		assert.Equal(t, 0, notifier.count())
	})
}

func TestServiceStats(t *testing.T) {
	ctx := context.Background()

	t.Run("counters derive from one aggregate", func(t *testing.T) {
		checked := testRegistration("u1", "alice")
		now := time.Now().UTC()
		checked.CheckedIn = true
		checked.CheckedInAt = &now
		checked.Status = models.RegistrationStatusAttended
		store := newFakeStore(
			[]models.Event{testEvent()},
			[]models.Registration{checked, testRegistration("u2", "bob"), testRegistration("u3", "carol")},
		)
		svc := newTestService(t, store)

		stats, err := svc.Stats(ctx, "evt1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.CheckedIn)
		assert.Equal(t, 2, stats.AwaitingCheckIn)
		assert.Equal(t, stats.Total, stats.AwaitingCheckIn+stats.CheckedIn)
		assert.Equal(t, 0, stats.AvailableSpots)
		assert.Equal(t, 33, stats.OccupancyRate)
	})

	t.Run("available spots never negative", func(t *testing.T) {
		e := testEvent()
		e.Capacity = 2
		store := newFakeStore(
			[]models.Event{e},
			[]models.Registration{testRegistration("u1", "alice"), testRegistration("u2", "bob"), testRegistration("u3", "carol")},
		)
		svc := newTestService(t, store)

		stats, err := svc.Stats(ctx, "evt1")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 0, stats.AvailableSpots)
	})

	t.Run("unknown event", func(t *testing.T) {
		svc := newTestService(t, newFakeStore(nil, nil))
		_, err := svc.Stats(ctx, "nope")
		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestServiceDoorList(t *testing.T) {
	ctx := context.Background()

	makeStore := func() *fakeStore {
		vip := testRegistration("u2", "Zoe")
		vip.TicketType = "vip"
		store := newFakeStore(
			[]models.Event{testEvent()},
			[]models.Registration{
				testRegistration("u1", "bob"),
				vip,
				testRegistration("spk1", "Al"),
				testRegistration("u3", "Alice"),
			},
		)
		store.speakers["evt1"] = []string{"spk1"}
		return store
	}

	t.Run("sorted by role priority then name", func(t *testing.T) {
		svc := newTestService(t, makeStore())

		entries, err := svc.DoorList(ctx, "evt1", "")
		require.NoError(t, err)
		require.Len(t, entries, 4)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Registration.Name)
		}
		// speaker first, then vip, then attendees in case-insensitive name order
		assert.Equal(t, []string{"Al", "Zoe", "Alice", "bob"}, names)
	})

	t.Run("role filter", func(t *testing.T) {
		svc := newTestService(t, makeStore())

		entries, err := svc.DoorList(ctx, "evt1", "vip")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Zoe", entries[0].Registration.Name)
	})
}

func TestServiceFindByEmail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore([]models.Event{testEvent()}, []models.Registration{testRegistration("u1", "alice")})
	svc := newTestService(t, store)

	t.Run("case-insensitive match", func(t *testing.T) {
		reg, role, err := svc.FindByEmail(ctx, "evt1", "  Alice@Example.com ")
		require.NoError(t, err)
		require.NotNil(t, reg)
		assert.Equal(t, "u1", reg.UserID)
		require.NotNil(t, role)
		assert.Equal(t, "attendee", role.Key)
	})

	t.Run("no match returns nil without error", func(t *testing.T) {
		reg, role, err := svc.FindByEmail(ctx, "evt1", "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, reg)
		assert.Nil(t, role)
	})
}
