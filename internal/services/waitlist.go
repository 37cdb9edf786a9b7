package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"medlenswaitlist/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	referralCodeLength = 8

	// maxCodeAttempts bounds the uniqueness loop. With a 36^8 code space
	// exhausting this many attempts means something is badly wrong with
	// either the generator or the store.
	maxCodeAttempts = 10

	// maxCreateAttempts bounds re-minting when the insert itself loses a
	// race on the referral_code unique index.
	maxCreateAttempts = 3

	// otherSentinel marks a survey option whose free-text companion field
	// carries the actual answer.
	otherSentinel = "Other"
)

var referralCodeAlphabet = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

type waitlistService struct {
	entrantRepo    domain.EntrantRepository
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewWaitlistService creates a WaitlistService with the given repository.
// emailService may be nil, in which case no welcome email is sent.
func NewWaitlistService(
	entrantRepo domain.EntrantRepository,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.WaitlistService {
	return &waitlistService{
		entrantRepo:    entrantRepo,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *waitlistService) Join(ctx context.Context, app *domain.JoinApplication) (*domain.Entrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	fullName := strings.TrimSpace(app.FullName)
	email := strings.TrimSpace(strings.ToLower(app.Email))
	yearOfStudy := strings.TrimSpace(app.YearOfStudy)

	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", domain.ErrInvalidInput)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if yearOfStudy == "" {
		return nil, fmt.Errorf("%w: year of study is required", domain.ErrInvalidInput)
	}
	if !domain.ValidYearOfStudy(yearOfStudy) {
		return nil, fmt.Errorf("%w: unrecognized year of study %q", domain.ErrInvalidInput, yearOfStudy)
	}

	// Fast-path duplicate check. The unique index on email remains the
	// authoritative constraint; a concurrent join that slips past this
	// check still fails on Create with ErrDuplicateEmail.
	if _, err := s.entrantRepo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrEntrantNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	// Resolve the referrer before insert so referred_by is set at
	// creation. An unknown code is not an error for the submitter.
	var referrer *domain.Entrant
	if code := strings.TrimSpace(app.ReferralCode); code != "" {
		found, err := s.entrantRepo.FindByReferralCode(ctx, code)
		switch {
		case err == nil:
			referrer = found
		case errors.Is(err, domain.ErrEntrantNotFound):
			s.logger.Info("unknown referral code supplied, proceeding without referrer", "code", code)
		default:
			return nil, fmt.Errorf("resolve referral code: %w", err)
		}
	}

	questions := buildQuestions(app)

	var entrant *domain.Entrant
	for attempt := 0; ; attempt++ {
		code, err := s.generateUniqueReferralCode(ctx)
		if err != nil {
			return nil, err
		}

		var referredBy *string
		if referrer != nil {
			referredBy = &referrer.ID
		}
		entrant = domain.NewEntrant(fullName, email, yearOfStudy, app.IsBetaTester, code, referredBy, questions, time.Now())

		err = s.entrantRepo.Create(ctx, entrant)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		if errors.Is(err, domain.ErrDuplicateReferralCode) && attempt < maxCreateAttempts-1 {
			s.logger.Warn("referral code collided on insert, re-minting", "attempt", attempt+1)
			continue
		}
		return nil, fmt.Errorf("create entrant: %w", err)
	}

	// The entrant is durably persisted from here on. Referral bookkeeping
	// failures are logged, never surfaced: a valid signup must not be
	// reported as failed because its referrer could not be credited.
	if referrer != nil {
		if err := s.entrantRepo.IncrementReferralCount(ctx, referrer.ID); err != nil {
			s.logger.Error("failed to credit referrer", "referrer_id", referrer.ID, "err", err)
		}
	}

	if s.emailService != nil {
		data := &domain.WelcomeEmailData{
			Email:        entrant.Email,
			FullName:     entrant.FullName,
			ReferralCode: entrant.ReferralCode,
		}
		if err := s.emailService.SendWelcomeMessage(ctx, data); err != nil {
			s.logger.Error("failed to send welcome email", "email", entrant.Email, "err", err)
		}
	}

	return entrant, nil
}

func (s *waitlistService) GetReferralInfo(ctx context.Context, code string) (*domain.ReferralInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: referral code is required", domain.ErrInvalidInput)
	}

	entrant, err := s.entrantRepo.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrEntrantNotFound) {
			return nil, domain.ErrEntrantNotFound
		}
		return nil, fmt.Errorf("get entrant by referral code: %w", err)
	}
	return &domain.ReferralInfo{
		FullName:      entrant.FullName,
		ReferralCount: entrant.ReferralCount,
	}, nil
}

func (s *waitlistService) Stats(ctx context.Context) (*domain.WaitlistStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	total, err := s.entrantRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count entrants: %w", err)
	}
	beta, err := s.entrantRepo.CountBetaTesters(ctx)
	if err != nil {
		return nil, fmt.Errorf("count beta testers: %w", err)
	}
	return &domain.WaitlistStats{TotalUsers: total, BetaTesters: beta}, nil
}

// generateUniqueReferralCode mints codes until one is not already taken.
// The unique index on referral_code still backs this check: a lost race
// between the lookup and the insert surfaces as ErrDuplicateReferralCode
// from Create and is retried there.
func (s *waitlistService) generateUniqueReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateReferralCode()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		_, err = s.entrantRepo.FindByReferralCode(ctx, code)
		if errors.Is(err, domain.ErrEntrantNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		s.logger.Warn("referral code collision", "attempt", attempt+1)
	}
	return "", fmt.Errorf("no unused referral code after %d attempts", maxCodeAttempts)
}

func generateReferralCode() (string, error) {
	b := make([]rune, referralCodeLength)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// buildQuestions assembles the survey answers in form order. Lists that
// contain the "Other" sentinel get it replaced with "Other: <free text>"
// when the matching free-text field is non-empty, and dropped otherwise.
func buildQuestions(app *domain.JoinApplication) []domain.QuestionAnswer {
	var questions []domain.QuestionAnswer
	add := func(questionID string, selected []string, otherText string) {
		answer := resolveOtherSentinel(selected, otherText)
		if len(answer) == 0 {
			return
		}
		questions = append(questions, domain.QuestionAnswer{QuestionID: questionID, Answer: answer})
	}
	add("goals", app.Goals, app.OtherGoals)
	add("studyMethods", app.StudyMethods, "")
	add("struggles", app.Struggles, app.OtherStruggles)
	return questions
}

func resolveOtherSentinel(selected []string, otherText string) []string {
	otherText = strings.TrimSpace(otherText)
	answer := make([]string, 0, len(selected))
	for _, option := range selected {
		if option != otherSentinel {
			answer = append(answer, option)
			continue
		}
		if otherText != "" {
			answer = append(answer, otherSentinel+": "+otherText)
		}
	}
	return answer
}
