package router

import (
	"net/http"

	"github.com/carbocredit/backend/internal/analytics"
	"github.com/carbocredit/backend/internal/auth"
	"github.com/carbocredit/backend/internal/dashboard"
	"github.com/carbocredit/backend/internal/emissions"
	"github.com/carbocredit/backend/internal/insights"
	"github.com/carbocredit/backend/internal/ledger"
	"github.com/carbocredit/backend/internal/marketplace"
	"github.com/carbocredit/backend/internal/middleware"
	"github.com/carbocredit/backend/internal/verification"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	Emissions    *emissions.Handler
	Verification *verification.Handler
	Ledger       *ledger.Handler
	Marketplace  *marketplace.Handler
	Analytics    *analytics.Handler
	Dashboard    *dashboard.Handler
	Insights     *insights.Handler
}

// New returns the API mux. All routes except auth and health require a
// resolved user; queue and decision routes additionally require the auditor
// role.
func New(h Handlers, users middleware.UserResolver, tokens middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	withUser := middleware.WalletAuth(users, tokens)

	authed := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withUser(fn))
	}
	auditor := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, withUser(middleware.AuditorOnly(fn)))
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)

	authed("POST /api/emissions/report", h.Emissions.Report)
	authed("GET /api/emissions/history", h.Emissions.History)
	authed("GET /api/emissions/total", h.Emissions.Total)

	authed("POST /api/verification/submit", h.Verification.Submit)
	authed("GET /api/verification/requests", h.Verification.List)
	auditor("GET /api/auditor/pending", h.Verification.PendingQueue)
	auditor("GET /api/auditor/approved", h.Verification.ApprovedQueue)
	auditor("POST /api/auditor/approve/{requestId}", h.Verification.Approve)
	auditor("POST /api/auditor/reject/{requestId}", h.Verification.Reject)

	authed("POST /api/credits/mint", h.Ledger.Mint)
	authed("GET /api/credits/balance", h.Ledger.Balance)
	authed("GET /api/credits/history", h.Ledger.History)

	authed("POST /api/marketplace/create-listing", h.Marketplace.CreateListing)
	authed("GET /api/marketplace/listings", h.Marketplace.Listings)
	authed("POST /api/marketplace/buy", h.Marketplace.Buy)
	authed("POST /api/marketplace/cancel/{listingId}", h.Marketplace.Cancel)
	// Selling credits is opening a listing; older clients use this path.
	authed("POST /api/marketplace/sell", h.Marketplace.CreateListing)

	authed("GET /api/analytics/emissions", h.Analytics.Emissions)
	authed("GET /api/analytics/credits", h.Analytics.Credits)
	authed("GET /api/analytics/market", h.Analytics.Market)

	authed("GET /api/dashboard", h.Dashboard.Summary)

	authed("GET /api/ai/predictions", h.Insights.Predictions)
	authed("GET /api/ai/recommendations", h.Insights.Recommendations)
	authed("GET /api/ai/anomalies", h.Insights.Anomalies)

	return mux
}
