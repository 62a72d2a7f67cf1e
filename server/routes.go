package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, s.services.Metrics.Handler())

	// Credentials
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	if s.services.Google != nil {
		s.RegisterRouteHandler("POST "+RouteGoogleOAuth, ChainMiddleware(s.FederatedLoginHandler(s.services.Google, "id_token"), s.APIMiddleware(s.RateLimitMiddleware)...))
	}
	if s.services.GoogleCode != nil {
		s.RegisterRouteHandler("POST "+RouteGoogleOAuthCode, ChainMiddleware(s.FederatedLoginHandler(s.services.GoogleCode, "code"), s.APIMiddleware(s.RateLimitMiddleware)...))
	}
	if s.services.Apple != nil {
		s.RegisterRouteHandler("POST "+RouteAppleOAuth, ChainMiddleware(s.FederatedLoginHandler(s.services.Apple, "identity_token"), s.APIMiddleware(s.RateLimitMiddleware)...))
	}

	// Protected API
	s.RegisterRouteHandler("GET "+RouteAPIUserMe, ChainMiddleware(s.UserMeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIChatsMe, ChainMiddleware(s.MyChatsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteAPIConversation, ChainMiddleware(s.ConversationHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteAPIChats, ChainMiddleware(s.SendChatHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Relay socket authenticates before the upgrade
	s.RegisterRouteHandler("GET "+RouteWebSocket, ChainMiddleware(s.SocketHandler(), s.APIMiddleware()...))
}
