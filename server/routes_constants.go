package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex   = "/"
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"

	// Credential routes
	RouteSignup          = "/signup"
	RouteToken           = "/token"
	RouteGoogleOAuth     = "/google_oauth"
	RouteGoogleOAuthCode = "/google_oauth/code"
	RouteAppleOAuth      = "/apple_oauth"

	// API routes (bearer token required)
	RouteAPIUserMe       = "/api/users/me"
	RouteAPIChatsMe      = "/api/chats/me"
	RouteAPIConversation = "/api/chats/me/{correspondent_id}"
	RouteAPIChats        = "/api/chats"

	// Realtime relay
	RouteWebSocket = "/ws"
)
