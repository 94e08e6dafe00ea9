package titles

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/harmonyhold/titlewarden/titlewarden/database/models"
	"github.com/harmonyhold/titlewarden/titlewarden/database/repositories"
	"github.com/harmonyhold/titlewarden/titlewarden/notifier"
	"github.com/harmonyhold/titlewarden/titlewarden/scheduling"
)

// memState backs in-memory implementations of the repository
// interfaces, mirroring the constraints the real schema enforces (the
// unique (title, slot) pair and the one-shift-per-title upsert).
type memState struct {
	mu sync.Mutex

	titles         []*models.Title
	reservations   []*models.Reservation
	shifts         map[string]*models.TitleShift
	settings       map[string]string
	requestLog     []*models.RequestLog
	nextID         int64
	shiftUpsertErr map[string]error
}

func newMemState() *memState {
	s := &memState{
		shifts:         make(map[string]*models.TitleShift),
		settings:       make(map[string]string),
		shiftUpsertErr: make(map[string]error),
	}
	for i, title := range DefaultCatalog() {
		title.ID = int64(i + 1)
		s.titles = append(s.titles, title)
	}
	return s
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

type memTitles struct{ s *memState }

func (m *memTitles) All(context.Context) ([]*models.Title, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*models.Title(nil), m.s.titles...), nil
}

func (m *memTitles) ByName(_ context.Context, name string) (*models.Title, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.titles {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memTitles) RequestableNames(context.Context) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var names []string
	for _, t := range m.s.titles {
		if t.Requestable {
			names = append(names, t.Name)
		}
	}
	return names, nil
}

func (m *memTitles) SetRequestable(_ context.Context, name string, requestable bool) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.titles {
		if t.Name == name {
			t.Requestable = requestable
			return true, nil
		}
	}
	return false, nil
}

type memReservations struct{ s *memState }

func (m *memReservations) Create(_ context.Context, reservation *models.Reservation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	slot := reservation.SlotAt.UTC()
	for _, r := range m.s.reservations {
		if r.TitleName == reservation.TitleName && r.SlotAt.Equal(slot) {
			return repositories.ErrReservationExists
		}
	}
	reservation.ID = m.s.id()
	reservation.SlotAt = slot
	reservation.Status = models.ReservationStatusBooked
	reservation.CreatedAt = time.Now().UTC()
	m.s.reservations = append(m.s.reservations, reservation)
	return nil
}

func (m *memReservations) GetBySlot(_ context.Context, titleName string, slotAt time.Time) (*models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.reservations {
		if r.TitleName == titleName && r.SlotAt.Equal(slotAt.UTC()) {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memReservations) Delete(_ context.Context, titleName string, slotAt time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i, r := range m.s.reservations {
		if r.TitleName == titleName && r.SlotAt.Equal(slotAt.UTC()) {
			m.s.reservations = append(m.s.reservations[:i], m.s.reservations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memReservations) DueBooked(_ context.Context, now time.Time) ([]*models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var due []*models.Reservation
	for _, r := range m.s.reservations {
		if r.Status == models.ReservationStatusBooked && !r.SlotAt.After(now.UTC()) {
			due = append(due, r)
		}
	}
	for i := range due {
		for j := i + 1; j < len(due); j++ {
			if due[j].SlotAt.Before(due[i].SlotAt) {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	return due, nil
}

func (m *memReservations) MarkConsumed(_ context.Context, id int64, status models.ReservationStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.reservations {
		if r.ID == id && r.Status == models.ReservationStatusBooked {
			r.Status = status
		}
	}
	return nil
}

func (m *memReservations) Window(_ context.Context, from, to time.Time) ([]*models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Reservation
	for _, r := range m.s.reservations {
		if r.Status != models.ReservationStatusBooked {
			continue
		}
		if r.SlotAt.Before(from.UTC()) || !r.SlotAt.Before(to.UTC()) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type memShifts struct{ s *memState }

func (m *memShifts) All(context.Context) ([]*models.TitleShift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.TitleShift
	for _, shift := range m.s.shifts {
		out = append(out, shift)
	}
	return out, nil
}

func (m *memShifts) Get(_ context.Context, titleName string) (*models.TitleShift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.shifts[titleName], nil
}

func (m *memShifts) Upsert(_ context.Context, shift *models.TitleShift) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.shiftUpsertErr[shift.TitleName]; err != nil {
		return err
	}
	shift.ClaimedAt = shift.ClaimedAt.UTC()
	shift.UpdatedAt = time.Now().UTC()
	if existing, ok := m.s.shifts[shift.TitleName]; ok {
		shift.ID = existing.ID
	} else {
		shift.ID = m.s.id()
	}
	m.s.shifts[shift.TitleName] = shift
	return nil
}

func (m *memShifts) Release(_ context.Context, titleName string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.shifts[titleName]; !ok {
		return false, nil
	}
	delete(m.s.shifts, titleName)
	return true, nil
}

func (m *memShifts) Expired(_ context.Context, now time.Time) ([]*models.TitleShift, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.TitleShift
	for _, shift := range m.s.shifts {
		if shift.Expired(now.UTC()) {
			out = append(out, shift)
		}
	}
	return out, nil
}

type memSettings struct{ s *memState }

func (m *memSettings) ShiftHours(context.Context) int {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	raw, ok := m.s.settings[models.SettingShiftHours]
	if !ok {
		return models.DefaultShiftHours
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < models.MinShiftHours || hours > models.MaxShiftHours {
		return models.DefaultShiftHours
	}
	return hours
}

func (m *memSettings) SetShiftHours(_ context.Context, hours int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.settings[models.SettingShiftHours] = strconv.Itoa(hours)
	return nil
}

type memRequestLog struct{ s *memState }

func (m *memRequestLog) Append(_ context.Context, entry *models.RequestLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	entry.ID = m.s.id()
	m.s.requestLog = append(m.s.requestLog, entry)
	return nil
}

func (m *memRequestLog) Recent(_ context.Context, limit int) ([]*models.RequestLog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if limit <= 0 || limit > len(m.s.requestLog) {
		limit = len(m.s.requestLog)
	}
	out := make([]*models.RequestLog, 0, limit)
	for i := len(m.s.requestLog) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.s.requestLog[i])
	}
	return out, nil
}

// captureSink records events synchronously for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (c *captureSink) Notify(_ context.Context, event notifier.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) all() []notifier.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notifier.Event(nil), c.events...)
}

func (c *captureSink) ofKind(kind notifier.EventKind) []notifier.Event {
	var out []notifier.Event
	for _, e := range c.all() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fixture wires an engine, scheduler, and projector over one shared
// in-memory state with a controllable clock.
type fixture struct {
	state     *memState
	clock     *testClock
	sink      *captureSink
	engine    *Engine
	scheduler *Scheduler
	projector *Projector
}

func newFixture(at time.Time) *fixture {
	state := newMemState()
	clock := &testClock{t: at}
	sink := &captureSink{}

	titles := &memTitles{s: state}
	reservations := &memReservations{s: state}
	shifts := &memShifts{s: state}
	settings := &memSettings{s: state}
	requestLog := &memRequestLog{s: state}

	engine := NewEngine(titles, reservations, shifts, settings, requestLog, sink)
	engine.now = clock.Now

	scheduler := NewScheduler(reservations, shifts, settings, sink)
	scheduler.now = clock.Now

	projector := NewProjector(titles, reservations, shifts, settings)
	projector.now = clock.Now

	return &fixture{
		state:     state,
		clock:     clock,
		sink:      sink,
		engine:    engine,
		scheduler: scheduler,
		projector: projector,
	}
}

// bookDirect inserts a booked reservation bypassing engine validation.
func (f *fixture) bookDirect(titleName, ign, coords string, slotAt time.Time) *models.Reservation {
	reservation := &models.Reservation{
		TitleName: titleName,
		IGN:       ign,
		Coords:    coords,
		SlotAt:    scheduling.CanonicalSlot(slotAt),
	}
	if err := (&memReservations{s: f.state}).Create(context.Background(), reservation); err != nil {
		panic(err)
	}
	return reservation
}
