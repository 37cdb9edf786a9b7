package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"medlenswaitlist/internal/domain"
)

// entrantRepository is an in-memory domain.EntrantRepository for local
// development and demos. It enforces the same email and referral-code
// uniqueness as the Postgres adapter and performs the referral-count
// increment under the lock, so the service sees identical semantics.
type entrantRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Entrant
	byEmail map[string]string
	byCode  map[string]string
}

// NewEntrantRepository returns an empty in-memory EntrantRepository.
func NewEntrantRepository() domain.EntrantRepository {
	return &entrantRepository{
		byID:    make(map[string]*domain.Entrant),
		byEmail: make(map[string]string),
		byCode:  make(map[string]string),
	}
}

func (r *entrantRepository) Create(ctx context.Context, e *domain.Entrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[e.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	if _, ok := r.byCode[e.ReferralCode]; ok {
		return domain.ErrDuplicateReferralCode
	}

	e.ID = uuid.NewString()
	stored := *e
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	r.byCode[stored.ReferralCode] = stored.ID
	return nil
}

func (r *entrantRepository) FindByEmail(ctx context.Context, email string) (*domain.Entrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrEntrantNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *entrantRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Entrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrEntrantNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *entrantRepository) IncrementReferralCount(ctx context.Context, entrantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[entrantID]
	if !ok {
		return domain.ErrEntrantNotFound
	}
	e.ReferralCount++
	return nil
}

func (r *entrantRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *entrantRepository) CountBetaTesters(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, e := range r.byID {
		if e.IsBetaTester {
			count++
		}
	}
	return count, nil
}
