package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"medlenswaitlist/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(waitlistController *controllers.WaitlistController) *http.ServeMux {
	mux := http.NewServeMux()

	// Waitlist
	mux.HandleFunc("POST /api/waitlist/join", waitlistController.Join)
	mux.HandleFunc("GET /api/waitlist/referral/{code}", waitlistController.GetReferralInfo)
	mux.HandleFunc("GET /api/waitlist/stats", waitlistController.GetStats)

	// Health
	mux.HandleFunc("GET /api/health", waitlistController.HealthCheck)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
