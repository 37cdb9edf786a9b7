package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medlenswaitlist/internal/delivery/http/helpers"
	"medlenswaitlist/internal/domain"
)

type mockWaitlistService struct {
	entrant      *domain.Entrant
	info         *domain.ReferralInfo
	stats        *domain.WaitlistStats
	err          error
	lastJoinApp  *domain.JoinApplication
	lastInfoCode string
}

func (m *mockWaitlistService) Join(ctx context.Context, app *domain.JoinApplication) (*domain.Entrant, error) {
	m.lastJoinApp = app
	if m.err != nil {
		return nil, m.err
	}
	return m.entrant, nil
}

func (m *mockWaitlistService) GetReferralInfo(ctx context.Context, code string) (*domain.ReferralInfo, error) {
	m.lastInfoCode = code
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

func (m *mockWaitlistService) Stats(ctx context.Context) (*domain.WaitlistStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func validJoinBody() string {
	return `{
		"full_name": "Alice Kim",
		"email": "alice@example.com",
		"year_of_study": "MBBS 2nd Year",
		"goals": ["Pass exams", "Other"],
		"other_goals": "Learn faster",
		"referral_code": "ABC123XY"
	}`
}

// newMux routes requests through the same patterns as the production
// router so path values resolve in handlers.
func newMux(ctrl *WaitlistController) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/waitlist/join", ctrl.Join)
	mux.HandleFunc("GET /api/waitlist/referral/{code}", ctrl.GetReferralInfo)
	mux.HandleFunc("GET /api/waitlist/stats", ctrl.GetStats)
	mux.HandleFunc("GET /api/health", ctrl.HealthCheck)
	return mux
}

func TestWaitlistController_Join_Success(t *testing.T) {
	entrant := &domain.Entrant{
		ID:           "entrant-1",
		FullName:     "Alice Kim",
		Email:        "alice@example.com",
		ReferralCode: "QY7TP2MX",
	}
	svc := &mockWaitlistService{entrant: entrant}
	ctrl := NewWaitlistController(discardLogger(), svc)

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist/join", strings.NewReader(validJoinBody()))
	w := httptest.NewRecorder()
	newMux(ctrl).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp helpers.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("expected no error, got %v", resp.Error)
	}
	if svc.lastJoinApp == nil {
		t.Fatal("expected the service to receive the application")
	}
	if svc.lastJoinApp.ReferralCode != "ABC123XY" {
		t.Fatalf("expected referral code to pass through, got %q", svc.lastJoinApp.ReferralCode)
	}
	if svc.lastJoinApp.OtherGoals != "Learn faster" {
		t.Fatalf("expected other_goals to pass through, got %q", svc.lastJoinApp.OtherGoals)
	}
}

func TestWaitlistController_Join_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing full name", `{"email":"a@b.com","year_of_study":"Intern"}`},
		{"missing email", `{"full_name":"Alice","year_of_study":"Intern"}`},
		{"malformed email", `{"full_name":"Alice","email":"nope","year_of_study":"Intern"}`},
		{"unknown year of study", `{"full_name":"Alice","email":"a@b.com","year_of_study":"Kindergarten"}`},
		{"malformed json", `{"full_name":`},
		{"unknown field", `{"full_name":"Alice","email":"a@b.com","year_of_study":"Intern","admin":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWaitlistService{}
			ctrl := NewWaitlistController(discardLogger(), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/waitlist/join", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newMux(ctrl).ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if svc.lastJoinApp != nil {
				t.Fatal("service must not be called for an invalid request")
			}
		})
	}
}

func TestWaitlistController_Join_DuplicateEmail(t *testing.T) {
	svc := &mockWaitlistService{err: domain.ErrDuplicateEmail}
	ctrl := NewWaitlistController(discardLogger(), svc)

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist/join", strings.NewReader(validJoinBody()))
	w := httptest.NewRecorder()
	newMux(ctrl).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	var resp helpers.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != helpers.ErrCodeConflict {
		t.Fatalf("expected conflict error, got %+v", resp.Error)
	}
}

func TestWaitlistController_Join_StorageError(t *testing.T) {
	svc := &mockWaitlistService{err: errors.New("connection refused")}
	ctrl := NewWaitlistController(discardLogger(), svc)

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist/join", strings.NewReader(validJoinBody()))
	w := httptest.NewRecorder()
	newMux(ctrl).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	// The raw storage error must not leak to the client.
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("storage error leaked to client: %s", w.Body.String())
	}
}

func TestWaitlistController_GetReferralInfo(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &mockWaitlistService{info: &domain.ReferralInfo{FullName: "Alice Kim", ReferralCount: 5}}
		ctrl := NewWaitlistController(discardLogger(), svc)

		req := httptest.NewRequest(http.MethodGet, "/api/waitlist/referral/QY7TP2MX", nil)
		w := httptest.NewRecorder()
		newMux(ctrl).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if svc.lastInfoCode != "QY7TP2MX" {
			t.Fatalf("expected code QY7TP2MX, got %q", svc.lastInfoCode)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := &mockWaitlistService{err: domain.ErrEntrantNotFound}
		ctrl := NewWaitlistController(discardLogger(), svc)

		req := httptest.NewRequest(http.MethodGet, "/api/waitlist/referral/ZZZZ9999", nil)
		w := httptest.NewRecorder()
		newMux(ctrl).ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("malformed code short-circuits", func(t *testing.T) {
		svc := &mockWaitlistService{}
		ctrl := NewWaitlistController(discardLogger(), svc)

		req := httptest.NewRequest(http.MethodGet, "/api/waitlist/referral/not-a-code", nil)
		w := httptest.NewRecorder()
		newMux(ctrl).ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
		if svc.lastInfoCode != "" {
			t.Fatal("service must not be called for a malformed code")
		}
	})
}

func TestWaitlistController_GetStats(t *testing.T) {
	svc := &mockWaitlistService{stats: &domain.WaitlistStats{TotalUsers: 3, BetaTesters: 1}}
	ctrl := NewWaitlistController(discardLogger(), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", nil)
	w := httptest.NewRecorder()
	newMux(ctrl).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Data  domain.WaitlistStats `json:"data"`
		Error *helpers.APIError    `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Data.TotalUsers != 3 || resp.Data.BetaTesters != 1 {
		t.Fatalf("unexpected stats: %+v", resp.Data)
	}
}

func TestWaitlistController_HealthCheck(t *testing.T) {
	ctrl := NewWaitlistController(discardLogger(), &mockWaitlistService{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	newMux(ctrl).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}
