package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for waitlist operations.
var (
	ErrEntrantNotFound       = errors.New("entrant not found")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrDuplicateReferralCode = errors.New("referral code already in use")
)

// ErrInvalidInput is returned when the application is missing required
// fields or carries an unrecognized study-stage label.
var ErrInvalidInput = errors.New("invalid input")

// QuestionAnswer is one survey response: a question identifier and the
// selected option labels (possibly including an "Other: <text>" entry).
type QuestionAnswer struct {
	QuestionID string   `json:"question_id"`
	Answer     []string `json:"answer"`
}

// Entrant represents one waitlist signup record.
// swagger:model Entrant
type Entrant struct {
	ID            string           `json:"id"`
	FullName      string           `json:"full_name"`
	Email         string           `json:"email"`
	YearOfStudy   string           `json:"year_of_study"`
	IsBetaTester  bool             `json:"is_beta_tester"`
	ReferralCode  string           `json:"referral_code"`
	ReferredBy    *string          `json:"referred_by"`
	ReferralCount int              `json:"referral_count"`
	Questions     []QuestionAnswer `json:"questions"`
	JoinedAt      time.Time        `json:"joined_at"`
}

// NewEntrant returns a new Entrant with the given fields. ID is set by the
// repository on create; ReferralCount starts at zero.
func NewEntrant(fullName, email, yearOfStudy string, isBetaTester bool, referralCode string, referredBy *string, questions []QuestionAnswer, joinedAt time.Time) *Entrant {
	return &Entrant{
		FullName:     fullName,
		Email:        email,
		YearOfStudy:  yearOfStudy,
		IsBetaTester: isBetaTester,
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
		Questions:    questions,
		JoinedAt:     joinedAt,
	}
}

// YearOfStudyLabels is the enumerated set of accepted study-stage labels,
// as collected by the signup form.
var YearOfStudyLabels = []string{
	"MBBS 1st Year", "MBBS 2nd Year", "MBBS 3rd Year", "MBBS 4th Year",
	"Intern", "Paramedical Course", "Nursing", "Pharmacy",
	"1st Year", "First Year", "2nd Year", "Second Year",
	"3rd Year", "Third Year", "4th Year", "Fourth Year",
	"5th Year", "Fifth Year",
	"Graduate", "Resident", "Fellow", "Attending", "Other",
}

var yearOfStudySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(YearOfStudyLabels))
	for _, label := range YearOfStudyLabels {
		set[label] = struct{}{}
	}
	return set
}()

// ValidYearOfStudy reports whether label is one of the accepted
// study-stage labels.
func ValidYearOfStudy(label string) bool {
	_, ok := yearOfStudySet[label]
	return ok
}

// JoinApplication carries one waitlist join request into the service.
type JoinApplication struct {
	FullName       string
	Email          string
	YearOfStudy    string
	IsBetaTester   bool
	ReferralCode   string
	Goals          []string
	StudyMethods   []string
	Struggles      []string
	OtherGoals     string
	OtherStruggles string
}

// ReferralInfo is the public view of a referrer, shown on the referral
// landing page.
type ReferralInfo struct {
	FullName      string `json:"full_name"`
	ReferralCount int    `json:"referral_count"`
}

// WaitlistStats holds aggregate waitlist counts.
type WaitlistStats struct {
	TotalUsers  int `json:"total_users"`
	BetaTesters int `json:"beta_testers"`
}

// EntrantRepository defines storage operations for waitlist entrants.
// Implementations must enforce uniqueness of email and referral code and
// surface violations as ErrDuplicateEmail / ErrDuplicateReferralCode, and
// must implement IncrementReferralCount as an atomic add-1 in storage.
type EntrantRepository interface {
	Create(ctx context.Context, entrant *Entrant) error
	FindByEmail(ctx context.Context, email string) (*Entrant, error)
	FindByReferralCode(ctx context.Context, code string) (*Entrant, error)
	IncrementReferralCount(ctx context.Context, entrantID string) error
	Count(ctx context.Context) (int, error)
	CountBetaTesters(ctx context.Context) (int, error)
}

// WaitlistService defines the business logic for waitlist signups.
type WaitlistService interface {
	Join(ctx context.Context, app *JoinApplication) (*Entrant, error)
	GetReferralInfo(ctx context.Context, code string) (*ReferralInfo, error)
	Stats(ctx context.Context) (*WaitlistStats, error)
}
