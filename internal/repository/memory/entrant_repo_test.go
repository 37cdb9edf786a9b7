package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"medlenswaitlist/internal/domain"

	"github.com/stretchr/testify/require"
)

func newEntrant(email, code string, beta bool) *domain.Entrant {
	return &domain.Entrant{
		FullName:     "Alice Kim",
		Email:        email,
		YearOfStudy:  "Intern",
		IsBetaTester: beta,
		ReferralCode: code,
		JoinedAt:     time.Now(),
	}
}

func TestEntrantRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewEntrantRepository()

	e := newEntrant("alice@example.com", "QY7TP2MX", false)
	require.NoError(t, repo.Create(ctx, e))
	require.NotEmpty(t, e.ID)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, e.ID, byEmail.ID)

	byCode, err := repo.FindByReferralCode(ctx, "QY7TP2MX")
	require.NoError(t, err)
	require.Equal(t, e.ID, byCode.ID)

	_, err = repo.FindByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, domain.ErrEntrantNotFound)

	_, err = repo.FindByReferralCode(ctx, "NOPE0000")
	require.ErrorIs(t, err, domain.ErrEntrantNotFound)
}

func TestEntrantRepository_UniquenessConstraints(t *testing.T) {
	ctx := context.Background()
	repo := NewEntrantRepository()

	require.NoError(t, repo.Create(ctx, newEntrant("alice@example.com", "QY7TP2MX", false)))

	err := repo.Create(ctx, newEntrant("alice@example.com", "OTHER111", false))
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	err = repo.Create(ctx, newEntrant("bob@example.com", "QY7TP2MX", false))
	require.ErrorIs(t, err, domain.ErrDuplicateReferralCode)
}

func TestEntrantRepository_IncrementReferralCount(t *testing.T) {
	ctx := context.Background()
	repo := NewEntrantRepository()

	e := newEntrant("alice@example.com", "QY7TP2MX", false)
	require.NoError(t, repo.Create(ctx, e))

	require.NoError(t, repo.IncrementReferralCount(ctx, e.ID))
	require.NoError(t, repo.IncrementReferralCount(ctx, e.ID))

	got, err := repo.FindByReferralCode(ctx, "QY7TP2MX")
	require.NoError(t, err)
	require.Equal(t, 2, got.ReferralCount)

	require.ErrorIs(t, repo.IncrementReferralCount(ctx, "missing"), domain.ErrEntrantNotFound)
}

func TestEntrantRepository_IncrementReferralCount_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewEntrantRepository()

	e := newEntrant("alice@example.com", "QY7TP2MX", false)
	require.NoError(t, repo.Create(ctx, e))

	const credits = 50
	var wg sync.WaitGroup
	errs := make(chan error, credits)
	for i := 0; i < credits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.IncrementReferralCount(ctx, e.ID)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.FindByReferralCode(ctx, "QY7TP2MX")
	require.NoError(t, err)
	require.Equal(t, credits, got.ReferralCount)
}

func TestEntrantRepository_Counts(t *testing.T) {
	ctx := context.Background()
	repo := NewEntrantRepository()

	require.NoError(t, repo.Create(ctx, newEntrant("a@example.com", "CODE0001", false)))
	require.NoError(t, repo.Create(ctx, newEntrant("b@example.com", "CODE0002", true)))
	require.NoError(t, repo.Create(ctx, newEntrant("c@example.com", "CODE0003", false)))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	beta, err := repo.CountBetaTesters(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, beta)
}
