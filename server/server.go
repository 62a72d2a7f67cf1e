package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/andygonzalez6/Bandaid/auth"
	"github.com/andygonzalez6/Bandaid/chats"
	"github.com/andygonzalez6/Bandaid/federated"
	"github.com/andygonzalez6/Bandaid/internal/config"
	"github.com/andygonzalez6/Bandaid/relay"
	"github.com/andygonzalez6/Bandaid/users"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Services holds the dependencies the HTTP surface is built on.
type Services struct {
	Auth       *auth.Service
	Relay      *relay.Relay
	Users      users.Directory
	Chats      chats.Store
	Google     federated.Verifier // ID token check through tokeninfo
	GoogleCode federated.Verifier // optional authorization code exchange
	Apple      federated.Verifier
	Metrics    *Metrics
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	services Services
	upgrader websocket.Upgrader
	limiter  *RateLimiter
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Auth == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if services.Relay == nil {
		return nil, fmt.Errorf("[Server New] relay is required")
	}
	if services.Users == nil || services.Chats == nil {
		return nil, fmt.Errorf("[Server New] user directory and message store are required")
	}
	if services.Metrics == nil {
		services.Metrics = NewMetrics()
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		services: services,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	if rps := config.GetLoginRate(); rps > 0 {
		s.limiter = NewRateLimiter(rate.Limit(rps), max(config.GetLoginBurst(), 1), limiterIdle)
	}

	s.initRoutes()
	s.logRoutes()
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.RecoverMiddleware, s.EnvProbeGuard, s.CorsMiddleware)

	return s, nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// checkOrigin applies the CORS origin list to WebSocket handshakes.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.config.GetAllowedOrigins()
	return allowed.IsAllowedOrigin("*") || allowed.IsAllowedOrigin(origin)
}
