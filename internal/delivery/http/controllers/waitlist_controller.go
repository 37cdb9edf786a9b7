package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"medlenswaitlist/internal/delivery/http/helpers"
	"medlenswaitlist/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// referralCodeRegexp matches a minted referral code: 8 uppercase alphanumerics.
var referralCodeRegexp = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// JoinRequest is the request body for POST /api/waitlist/join.
type JoinRequest struct {
	FullName       string   `json:"full_name"`
	Email          string   `json:"email"`
	YearOfStudy    string   `json:"year_of_study"`
	IsBetaTester   bool     `json:"is_beta_tester"`
	ReferralCode   string   `json:"referral_code"`
	Goals          []string `json:"goals"`
	StudyMethods   []string `json:"study_methods"`
	Struggles      []string `json:"struggles"`
	OtherGoals     string   `json:"other_goals"`
	OtherStruggles string   `json:"other_struggles"`
}

// Validate implements helpers.Validator.
func (j JoinRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(j.FullName) == "" {
		errs = append(errs, "full_name is required")
	}
	email := strings.TrimSpace(strings.ToLower(j.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	yearOfStudy := strings.TrimSpace(j.YearOfStudy)
	if yearOfStudy == "" {
		errs = append(errs, "year_of_study is required")
	} else if !domain.ValidYearOfStudy(yearOfStudy) {
		errs = append(errs, "year_of_study is not a recognized study stage")
	}
	return errs
}

// JoinSuccessResponse is the success response envelope for POST /api/waitlist/join (201).
type JoinSuccessResponse struct {
	Data  *domain.Entrant   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ReferralInfoSuccessResponse is the success response envelope for GET /api/waitlist/referral/{code} (200).
type ReferralInfoSuccessResponse struct {
	Data  *domain.ReferralInfo `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// StatsSuccessResponse is the success response envelope for GET /api/waitlist/stats (200).
type StatsSuccessResponse struct {
	Data  *domain.WaitlistStats `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// WaitlistController handles waitlist signup, referral lookup, and stats endpoints.
type WaitlistController struct {
	Logger  *slog.Logger
	Service domain.WaitlistService
}

// NewWaitlistController creates a WaitlistController with the given logger and service.
func NewWaitlistController(logger *slog.Logger, svc domain.WaitlistService) *WaitlistController {
	return &WaitlistController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Join the waitlist
// @Description Register a new waitlist entrant. Deduplicates by email, mints a unique referral code, and credits the referrer when a known referral_code is supplied. Unknown referral codes are ignored, never rejected.
// @Tags waitlist
// @Accept json
// @Produce json
// @Param body body JoinRequest true "Application data"
// @Success 201 {object} controllers.JoinSuccessResponse "data contains the created entrant with its referral code"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (email already registered)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/waitlist/join [post]
func (c *WaitlistController) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	app := &domain.JoinApplication{
		FullName:       req.FullName,
		Email:          req.Email,
		YearOfStudy:    req.YearOfStudy,
		IsBetaTester:   req.IsBetaTester,
		ReferralCode:   req.ReferralCode,
		Goals:          req.Goals,
		StudyMethods:   req.StudyMethods,
		Struggles:      req.Struggles,
		OtherGoals:     req.OtherGoals,
		OtherStruggles: req.OtherStruggles,
	}

	entrant, err := c.Service.Join(r.Context(), app)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "email already registered")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "something went wrong, please try again later")
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusCreated, entrant)
}

// GetReferralInfo godoc
// @Summary Look up a referral code
// @Description Returns the referring entrant's name and referral count for the referral landing page.
// @Tags waitlist
// @Produce json
// @Param code path string true "Referral code (8 uppercase alphanumerics)"
// @Success 200 {object} controllers.ReferralInfoSuccessResponse "data contains full_name and referral_count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/waitlist/referral/{code} [get]
func (c *WaitlistController) GetReferralInfo(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing referral code")
		return
	}
	if !referralCodeRegexp.MatchString(code) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invalid referral code")
		return
	}

	info, err := c.Service.GetReferralInfo(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrEntrantNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "invalid referral code")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "something went wrong, please try again later")
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, info)
}

// GetStats godoc
// @Summary Waitlist stats
// @Description Returns the total number of entrants and how many signed up as beta testers.
// @Tags waitlist
// @Produce json
// @Success 200 {object} controllers.StatsSuccessResponse "data contains total_users and beta_testers"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/waitlist/stats [get]
func (c *WaitlistController) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "something went wrong, please try again later")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains status ok"
// @Router /api/health [get]
func (c *WaitlistController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
