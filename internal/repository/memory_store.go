package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
)

// MemoryStore keeps every repository in process. Registration traffic on one
// event is serialized by a mutex keyed by event id; different events proceed
// in parallel. Reads always return copies.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[string]*domain.Event // by id
	slugs         map[string]string        // slug -> id
	registrations map[string]*domain.Registration
	byEvent       map[string][]string // event id -> registration ids
	profiles      map[string]*domain.OrganizerProfile
	likes         map[likeKey]time.Time

	eventLocks sync.Map // event id -> *sync.Mutex
}

type likeKey struct {
	userID  string
	eventID string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[string]*domain.Event),
		slugs:         make(map[string]string),
		registrations: make(map[string]*domain.Registration),
		byEvent:       make(map[string][]string),
		profiles:      make(map[string]*domain.OrganizerProfile),
		likes:         make(map[likeKey]time.Time),
	}
}

// Events returns the store as an EventRepository
func (s *MemoryStore) Events() EventRepository { return &memoryEventRepository{s} }

// Registrations returns the store as a RegistrationRepository
func (s *MemoryStore) Registrations() RegistrationRepository { return &memoryRegistrationRepository{s} }

// Profiles returns the store as a ProfileRepository
func (s *MemoryStore) Profiles() ProfileRepository { return &memoryProfileRepository{s} }

// Likes returns the store as a LikeRepository
func (s *MemoryStore) Likes() LikeRepository { return &memoryLikeRepository{s} }

func (s *MemoryStore) eventLock(eventID string) *sync.Mutex {
	mu, _ := s.eventLocks.LoadOrStore(eventID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// lockEventBySlug resolves slug and acquires the event mutex. The slug is
// re-resolved after locking in case the event was deleted meanwhile.
func (s *MemoryStore) lockEventBySlug(slug string) (*domain.Event, func()) {
	s.mu.RLock()
	id, ok := s.slugs[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, func() {}
	}

	mu := s.eventLock(id)
	mu.Lock()

	s.mu.RLock()
	e, ok := s.events[id]
	var cp *domain.Event
	if ok {
		cp = e.Clone()
	}
	s.mu.RUnlock()

	return cp, mu.Unlock
}

func (s *MemoryStore) activeByEmailLocked(eventID, email string) *domain.Registration {
	for _, id := range s.byEvent[eventID] {
		r := s.registrations[id]
		if r.IsActive() && strings.EqualFold(r.Email, email) {
			return r
		}
	}
	return nil
}

func (s *MemoryStore) activeByUserLocked(eventID, userID string) *domain.Registration {
	var found *domain.Registration
	for _, id := range s.byEvent[eventID] {
		r := s.registrations[id]
		if r.IsActive() && r.BelongsTo(userID) {
			if found == nil || r.CreatedAt.After(found.CreatedAt) {
				found = r
			}
		}
	}
	return found
}

func cloneRegistration(r *domain.Registration) *domain.Registration {
	if r == nil {
		return nil
	}
	cp := *r
	if r.UserID != nil {
		u := *r.UserID
		cp.UserID = &u
	}
	if r.PaymentStatus != nil {
		p := *r.PaymentStatus
		cp.PaymentStatus = &p
	}
	return &cp
}

// memoryEventRepository implements EventRepository over a MemoryStore
type memoryEventRepository struct {
	s *MemoryStore
}

func (r *memoryEventRepository) Create(_ context.Context, e *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.slugs[e.Slug]; taken {
		return ErrSlugTaken
	}
	cp := e.Clone()
	cp.RegistrationCount, cp.ViewCount, cp.LikeCount = 0, 0, 0
	r.s.events[cp.ID] = cp
	r.s.slugs[cp.Slug] = cp.ID
	return nil
}

func (r *memoryEventRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.events[id].Clone(), nil
}

func (r *memoryEventRepository) GetBySlug(_ context.Context, slug string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.slugs[slug]
	if !ok {
		return nil, nil
	}
	return r.s.events[id].Clone(), nil
}

func (r *memoryEventRepository) Update(_ context.Context, slug string, fn func(*domain.Event) error) (*domain.Event, error) {
	e, unlock := r.s.lockEventBySlug(slug)
	defer unlock()
	if e == nil {
		return nil, nil
	}

	if err := fn(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.events[e.ID]
	if !ok {
		return nil, nil
	}
	// counters belong to the ledger and the view/like paths
	e.ID, e.Slug, e.OrganizerID, e.CreatedAt = stored.ID, stored.Slug, stored.OrganizerID, stored.CreatedAt
	e.RegistrationCount, e.ViewCount, e.LikeCount = stored.RegistrationCount, stored.ViewCount, stored.LikeCount
	r.s.events[e.ID] = e.Clone()
	return e, nil
}

func (r *memoryEventRepository) Delete(_ context.Context, id string) error {
	mu := r.s.eventLock(id)
	mu.Lock()
	defer mu.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return fmt.Errorf("event %s not found", id)
	}
	delete(r.s.events, id)
	delete(r.s.slugs, e.Slug)
	// registrations are kept as history
	for k := range r.s.likes {
		if k.eventID == id {
			delete(r.s.likes, k)
		}
	}
	return nil
}

func (r *memoryEventRepository) List(_ context.Context, q *domain.EventQuery) ([]*domain.Event, int, error) {
	r.s.mu.RLock()
	matched := make([]*domain.Event, 0)
	for _, e := range r.s.events {
		if q.Matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return q.Less(matched[i], matched[j]) })

	total := len(matched)
	if q.Offset >= total {
		return []*domain.Event{}, total, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], total, nil
}

func (r *memoryEventRepository) IncrementViewCount(_ context.Context, id string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.events[id]; ok {
		e.ViewCount += delta
	}
	return nil
}

// memoryRegistrationRepository implements RegistrationRepository over a MemoryStore
type memoryRegistrationRepository struct {
	s *MemoryStore
}

func (r *memoryRegistrationRepository) WithinEventLock(ctx context.Context, slug string, fn func(LedgerTx, *domain.Event) error) error {
	e, unlock := r.s.lockEventBySlug(slug)
	defer unlock()

	tx := &memoryLedgerTx{s: r.s, statuses: make(map[string]string)}
	if err := fn(tx, e); err != nil {
		return err
	}
	if e == nil {
		return nil
	}
	return tx.commit(e.ID)
}

func (r *memoryRegistrationRepository) FindActiveByUser(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneRegistration(r.s.activeByUserLocked(eventID, userID)), nil
}

func (r *memoryRegistrationRepository) ListByEvent(_ context.Context, eventID string) ([]*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	regs := make([]*domain.Registration, 0, len(r.s.byEvent[eventID]))
	for _, id := range r.s.byEvent[eventID] {
		regs = append(regs, cloneRegistration(r.s.registrations[id]))
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })
	return regs, nil
}

// memoryLedgerTx stages writes until commit; the caller holds the event mutex
type memoryLedgerTx struct {
	s          *MemoryStore
	inserts    []*domain.Registration
	statuses   map[string]string // registration id -> new status
	countDelta int
}

// view returns the registration as this transaction sees it
func (t *memoryLedgerTx) view(r *domain.Registration) *domain.Registration {
	if status, ok := t.statuses[r.ID]; ok {
		cp := cloneRegistration(r)
		cp.Status = status
		return cp
	}
	return r
}

func (t *memoryLedgerTx) each(eventID string, fn func(*domain.Registration) bool) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for _, id := range t.s.byEvent[eventID] {
		if !fn(t.view(t.s.registrations[id])) {
			return
		}
	}
	for _, r := range t.inserts {
		if r.EventID == eventID && !fn(t.view(r)) {
			return
		}
	}
}

func (t *memoryLedgerTx) ConfirmedQuantity(_ context.Context, eventID string) (int, error) {
	total := 0
	t.each(eventID, func(r *domain.Registration) bool {
		if r.IsConfirmed() {
			total += r.Quantity
		}
		return true
	})
	return total, nil
}

func (t *memoryLedgerTx) FindActiveByEmail(_ context.Context, eventID, email string) (*domain.Registration, error) {
	var found *domain.Registration
	t.each(eventID, func(r *domain.Registration) bool {
		if r.IsActive() && strings.EqualFold(r.Email, email) {
			found = cloneRegistration(r)
			return false
		}
		return true
	})
	return found, nil
}

func (t *memoryLedgerTx) FindActiveByUser(_ context.Context, eventID, userID string) (*domain.Registration, error) {
	var found *domain.Registration
	t.each(eventID, func(r *domain.Registration) bool {
		if r.IsActive() && r.BelongsTo(userID) && (found == nil || r.CreatedAt.After(found.CreatedAt)) {
			found = cloneRegistration(r)
		}
		return true
	})
	return found, nil
}

func (t *memoryLedgerTx) Insert(ctx context.Context, reg *domain.Registration) error {
	if reg.IsActive() {
		existing, _ := t.FindActiveByEmail(ctx, reg.EventID, reg.Email)
		if existing != nil {
			return ErrDuplicateActiveRegistration
		}
	}
	t.inserts = append(t.inserts, cloneRegistration(reg))
	return nil
}

func (t *memoryLedgerTx) UpdateStatus(_ context.Context, reg *domain.Registration, from string) error {
	current := ""
	t.each(reg.EventID, func(r *domain.Registration) bool {
		if r.ID == reg.ID {
			current = r.Status
			return false
		}
		return true
	})
	if current != from {
		return ErrStaleRegistration
	}
	t.statuses[reg.ID] = reg.Status
	return nil
}

func (t *memoryLedgerTx) AdjustRegistrationCount(_ context.Context, eventID string, delta int) (int, error) {
	t.s.mu.RLock()
	e, ok := t.s.events[eventID]
	base := 0
	if ok {
		base = e.RegistrationCount
	}
	t.s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("event %s not found", eventID)
	}

	next := base + t.countDelta + delta
	if next < 0 {
		return 0, ErrNegativeCount
	}
	t.countDelta += delta
	return next, nil
}

func (t *memoryLedgerTx) commit(eventID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	e, ok := t.s.events[eventID]
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}

	now := time.Now()
	for _, r := range t.inserts {
		if status, ok := t.statuses[r.ID]; ok {
			r.Status = status
		}
		t.s.registrations[r.ID] = r
		t.s.byEvent[r.EventID] = append(t.s.byEvent[r.EventID], r.ID)
	}
	for id, status := range t.statuses {
		if r, ok := t.s.registrations[id]; ok {
			r.Status = status
			r.UpdatedAt = now
		}
	}
	if t.countDelta != 0 {
		e.RegistrationCount += t.countDelta
		e.UpdatedAt = now
	}
	return nil
}

// memoryProfileRepository implements ProfileRepository over a MemoryStore
type memoryProfileRepository struct {
	s *MemoryStore
}

func (r *memoryProfileRepository) Create(_ context.Context, p *domain.OrganizerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.UserID]; ok {
		return ErrProfileExists
	}
	cp := *p
	cp.TotalEvents, cp.TotalAttendees = 0, 0
	r.s.profiles[p.UserID] = &cp
	return nil
}

func (r *memoryProfileRepository) GetByUserID(_ context.Context, userID string) (*domain.OrganizerProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memoryProfileRepository) AdjustTotals(_ context.Context, userID string, attendeesDelta, eventsDelta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	p.TotalAttendees = max(p.TotalAttendees+attendeesDelta, 0)
	p.TotalEvents = max(p.TotalEvents+eventsDelta, 0)
	p.UpdatedAt = time.Now()
	return nil
}

// memoryLikeRepository implements LikeRepository over a MemoryStore
type memoryLikeRepository struct {
	s *MemoryStore
}

func (r *memoryLikeRepository) Toggle(_ context.Context, userID, eventID string) (bool, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[eventID]
	if !ok {
		return false, 0, fmt.Errorf("event %s not found", eventID)
	}

	key := likeKey{userID: userID, eventID: eventID}
	if _, liked := r.s.likes[key]; liked {
		delete(r.s.likes, key)
		e.LikeCount = max(e.LikeCount-1, 0)
		return false, e.LikeCount, nil
	}
	r.s.likes[key] = time.Now()
	e.LikeCount++
	return true, e.LikeCount, nil
}

func (r *memoryLikeRepository) Exists(_ context.Context, userID, eventID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.likes[likeKey{userID: userID, eventID: eventID}]
	return ok, nil
}
