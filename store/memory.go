package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

// MemoryPaymentStore keeps payments in process memory. It is the default
// when no database is configured and is what the tests run against.
type MemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
	payouts  []models.PayoutSplit
}

func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{payments: make(map[string]*models.Payment)}
}

func (s *MemoryPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryPaymentStore) Get(ctx context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryPaymentStore) FindOpenForUserCourse(ctx context.Context, userID string, courseID int, since time.Time) (*models.Payment, error) {
	if userID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.Request.UserID != userID || p.Request.CourseID != courseID {
			continue
		}
		if p.Status != models.StatusPending && p.Status != models.StatusAwaitingConfirmation {
			continue
		}
		if p.CreatedAt.Before(since) {
			continue
		}
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryPaymentStore) MarkAwaiting(ctx context.Context, id string, reference string, cryptoAmount decimal.Decimal, cryptoCurrency string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != models.StatusPending {
		return false, nil
	}
	p.Status = models.StatusAwaitingConfirmation
	p.Reference = reference
	if cryptoCurrency != "" {
		p.CryptoAmount = cryptoAmount
		p.CryptoCurrency = cryptoCurrency
	}
	return true, nil
}

func (s *MemoryPaymentStore) Confirm(ctx context.Context, id, downloadID, txHash, proofRef string, confirmedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status != models.StatusAwaitingConfirmation {
		return false, nil
	}
	p.Status = models.StatusConfirmed
	p.DownloadID = downloadID
	p.TxHash = txHash
	p.ProofRef = proofRef
	at := confirmedAt
	p.ConfirmedAt = &at
	return true, nil
}

func (s *MemoryPaymentStore) Fail(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || (p.Status != models.StatusPending && p.Status != models.StatusAwaitingConfirmation) {
		return false, nil
	}
	p.Status = models.StatusFailed
	return true, nil
}

func (s *MemoryPaymentStore) List(ctx context.Context, filter ListFilter) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Payment{}
	for _, p := range s.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.CreatedAfter != nil && p.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && p.CreatedAt.After(*filter.CreatedBefore) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryPaymentStore) RecordPayout(ctx context.Context, split *models.PayoutSplit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payouts = append(s.payouts, *split)
	return nil
}

func (s *MemoryPaymentStore) Payouts(ctx context.Context) ([]models.PayoutSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PayoutSplit, len(s.payouts))
	copy(out, s.payouts)
	return out, nil
}

// MemoryCourseStore is a seeded in-memory catalog used when no database is
// configured.
type MemoryCourseStore struct {
	mu      sync.RWMutex
	courses map[int]*models.Course
	nextID  int
}

func NewMemoryCourseStore(seed []models.Course) *MemoryCourseStore {
	s := &MemoryCourseStore{courses: make(map[int]*models.Course), nextID: 1}
	for i := range seed {
		c := seed[i]
		if c.ID == 0 {
			c.ID = s.nextID
		}
		s.courses[c.ID] = &c
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	return s
}

func (s *MemoryCourseStore) List(ctx context.Context) ([]models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Course{}
	for _, c := range s.courses {
		if c.IsActive == 1 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryCourseStore) ByID(ctx context.Context, id int) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryCourseStore) Create(ctx context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID
	}
	cp := *c
	s.courses[cp.ID] = &cp
	if cp.ID >= s.nextID {
		s.nextID = cp.ID + 1
	}
	return nil
}
