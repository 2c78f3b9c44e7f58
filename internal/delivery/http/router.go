package http

import (
	"log/slog"
	"net/http"

	_ "eventticketing/docs"
	"eventticketing/internal/delivery/http/controllers"
	"eventticketing/internal/delivery/http/middleware"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(events *controllers.EventController, registrations *controllers.RegistrationController, transactions *controllers.TransactionController) *http.ServeMux {
	mux := http.NewServeMux()

	// Events
	mux.HandleFunc("POST /api/v1/events", events.CreateEvent)
	mux.HandleFunc("GET /api/v1/events", events.ListEvents)
	mux.HandleFunc("GET /api/v1/events/{eventID}", events.GetEvent)
	mux.HandleFunc("GET /api/v1/events/dashboard/{code}", events.GetDashboard)

	// Registrations
	mux.HandleFunc("POST /api/v1/registrations", registrations.Register)

	// Payments
	mux.HandleFunc("GET /api/v1/transactions/callback", transactions.Callback)
	mux.HandleFunc("POST /api/v1/transactions/webhook", transactions.CardWebhook)
	mux.HandleFunc("POST /api/v1/transactions/webhook/crypto", transactions.CryptoWebhook)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with CORS and request logging.
func NewHandler(mux *http.ServeMux, logger *slog.Logger, allowedOrigins []string) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, mux))
}
