package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/world"
)

// sessionRecords holds one session's world state in memory.
type sessionRecords struct {
	session   *world.Session
	entities  map[string]*world.Entity
	items     map[string]*world.Item
	locations map[string]*world.Location
	facts     map[string][]world.Fact
	needs     map[string]map[string]int
	turns     []branch.Turn
}

// MockStorage is an in-memory implementation of Storage for testing.
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*sessionRecords
	scenarios map[string]*world.Scenario
	pingError error

	// ApplyError, when set, makes the next ApplyDeltas call fail before
	// staging. Used to exercise commit-failure paths.
	ApplyError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions:  make(map[uuid.UUID]*sessionRecords),
		scenarios: make(map[string]*world.Scenario),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// AddScenario registers a scenario under the given filename
func (m *MockStorage) AddScenario(filename string, sc *world.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[filename] = sc
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) CreateSession(ctx context.Context, sc *world.Scenario) (*world.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sess := &world.Session{
		ID:            uuid.New(),
		ScenarioName:  sc.Name,
		LocationKey:   sc.StartLocation,
		Clock:         sc.Clock,
		ContentRating: sc.ContentRating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	rec := &sessionRecords{
		session:   sess,
		entities:  make(map[string]*world.Entity),
		items:     make(map[string]*world.Item),
		locations: make(map[string]*world.Location),
		facts:     make(map[string][]world.Fact),
		needs:     make(map[string]map[string]int),
	}
	for i := range sc.Locations {
		loc := sc.Locations[i]
		rec.locations[loc.Key] = &loc
	}
	for i := range sc.Entities {
		e := sc.Entities[i]
		if e.Type == "" {
			e.Type = world.EntityNPC
		}
		rec.entities[e.Key] = &e
	}
	for i := range sc.Items {
		it := sc.Items[i]
		rec.items[it.Key] = &it
	}
	if len(sc.PlayerNeeds) > 0 {
		needs := make(map[string]int, len(sc.PlayerNeeds))
		for k, v := range sc.PlayerNeeds {
			needs[k] = world.ClampNeed(v)
		}
		rec.needs[world.PlayerKey] = needs
	}

	m.sessions[sess.ID] = rec
	return sess, nil
}

func (m *MockStorage) SaveSession(ctx context.Context, sess *world.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sess.ID]
	if !ok {
		return errors.New("session not found")
	}
	sess.UpdatedAt = time.Now()
	cp := *sess
	rec.session = &cp
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*world.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *rec.session
	return &cp, nil
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.scenarios))
	for filename, sc := range m.scenarios {
		out[sc.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*world.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scenarios[filename]
	if !ok {
		return nil, errors.New("scenario not found: " + filename)
	}
	return sc, nil
}

func (m *MockStorage) records(id uuid.UUID) (*sessionRecords, error) {
	rec, ok := m.sessions[id]
	if !ok {
		return nil, errors.New("session not found")
	}
	return rec, nil
}

func (m *MockStorage) GetEntity(ctx context.Context, id uuid.UUID, key string) (*world.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	e, ok := rec.entities[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MockStorage) SaveEntity(ctx context.Context, id uuid.UUID, e *world.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.records(id)
	if err != nil {
		return err
	}
	cp := *e
	rec.entities[e.Key] = &cp
	return nil
}

func (m *MockStorage) EntitiesAt(ctx context.Context, id uuid.UUID, locationKey string) ([]world.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	var out []world.Entity
	for _, e := range rec.entities {
		if e.LocationKey == locationKey {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *MockStorage) GetItem(ctx context.Context, id uuid.UUID, key string) (*world.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	it, ok := rec.items[key]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (m *MockStorage) SaveItem(ctx context.Context, id uuid.UUID, it *world.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.records(id)
	if err != nil {
		return err
	}
	cp := *it
	rec.items[it.Key] = &cp
	return nil
}

func (m *MockStorage) ItemsHeldBy(ctx context.Context, id uuid.UUID, holderKey string) ([]world.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	var out []world.Item
	for _, it := range rec.items {
		if it.HolderKey == holderKey {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *MockStorage) GetLocation(ctx context.Context, id uuid.UUID, key string) (*world.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	loc, ok := rec.locations[key]
	if !ok {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

func (m *MockStorage) SaveLocation(ctx context.Context, id uuid.UUID, loc *world.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.records(id)
	if err != nil {
		return err
	}
	cp := *loc
	rec.locations[loc.Key] = &cp
	return nil
}

func (m *MockStorage) ListLocations(ctx context.Context, id uuid.UUID) ([]world.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	out := make([]world.Location, 0, len(rec.locations))
	for _, loc := range rec.locations {
		out = append(out, *loc)
	}
	return out, nil
}

func (m *MockStorage) FactsAbout(ctx context.Context, id uuid.UUID, subjectKey string) ([]world.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	return append([]world.Fact(nil), rec.facts[subjectKey]...), nil
}

func (m *MockStorage) Needs(ctx context.Context, id uuid.UUID, entityKey string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rec.needs[entityKey]))
	for k, v := range rec.needs[entityKey] {
		out[k] = v
	}
	return out, nil
}

func (m *MockStorage) AppendTurn(ctx context.Context, id uuid.UUID, t *branch.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.records(id)
	if err != nil {
		return err
	}
	rec.turns = append(rec.turns, *t)
	return nil
}

func (m *MockStorage) RecentTurns(ctx context.Context, id uuid.UUID, n int) ([]branch.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, err := m.records(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(rec.turns) {
		n = len(rec.turns)
	}
	return append([]branch.Turn(nil), rec.turns[len(rec.turns)-n:]...), nil
}

func (m *MockStorage) ApplyDeltas(ctx context.Context, sess *world.Session, deltas []branch.StateDelta, timePassed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApplyError != nil {
		err := m.ApplyError
		m.ApplyError = nil
		return err
	}
	rec, err := m.records(sess.ID)
	if err != nil {
		return err
	}

	// Stage against a full copy so a constraint failure leaves the
	// stored state untouched.
	staged := *sess
	snap := NewSnapshot(&staged)
	for k, v := range rec.entities {
		cp := *v
		snap.Entities[k] = &cp
	}
	for k, v := range rec.items {
		cp := *v
		snap.Items[k] = &cp
	}
	for k, v := range rec.locations {
		cp := *v
		snap.Locations[k] = &cp
	}
	for k, needs := range rec.needs {
		cp := make(map[string]int, len(needs))
		for need, val := range needs {
			cp[need] = val
		}
		snap.Needs[k] = cp
	}

	if err := Stage(snap, deltas, timePassed); err != nil {
		return err
	}

	staged.UpdatedAt = time.Now()
	rec.session = &staged
	rec.entities = snap.Entities
	rec.items = snap.Items
	rec.locations = snap.Locations
	rec.needs = snap.Needs
	for _, f := range snap.NewFacts {
		rec.facts[f.SubjectKey] = append(rec.facts[f.SubjectKey], f)
	}
	*sess = staged
	return nil
}
