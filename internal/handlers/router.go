package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/traffic-sim/internal/auth"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/middleware"
)

// RouterConfig holds what the API needs.
type RouterConfig struct {
	Simulation  Simulation
	AuthService *auth.Service
	Users       db.UserCollection
	// RateLimit is the number of requests a client may make per minute.
	RateLimit int
}

// NewRouter wires every endpoint behind logging, rate limiting and JWT
// authentication.
func NewRouter(cfg RouterConfig) http.Handler {
	simHandler := NewSimulationHandler(cfg.Simulation)
	authHandler := NewAuthHandler(cfg.AuthService, cfg.Users)
	authMW := middleware.NewAuthMiddleware(cfg.AuthService)
	can := func(action string, h http.HandlerFunc) http.Handler {
		return authMW.RequirePermission(action)(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", simHandler.Health)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	mux.Handle("GET /api/vehicles", can("view_vehicles", simHandler.ListVehicles))
	mux.Handle("GET /api/vehicles/{id}", can("view_vehicles", simHandler.GetVehicle))
	mux.Handle("POST /api/vehicles", can("spawn_vehicle", simHandler.SpawnVehicle))
	mux.Handle("DELETE /api/vehicles/{id}", can("remove_vehicle", simHandler.RemoveVehicle))
	mux.Handle("GET /api/roads", can("view_network", simHandler.ListRoads))
	mux.Handle("GET /api/intersections", can("view_network", simHandler.ListIntersections))

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 120
	}
	limiter := middleware.NewRateLimitMiddleware()

	var h http.Handler = mux
	h = authMW.Authenticate(h)
	h = limiter.RateLimit(rateLimit, time.Minute)(h)
	return middleware.Logging(h)
}
