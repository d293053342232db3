package store

// API route constants (avoid duplication across slices).
const (
	pathLogin      = "/auth/login"
	pathRegister   = "/auth/register"
	pathTickets    = "/tickets"
	pathKB         = "/kb"
	pathConfig     = "/config"
	pathSuggestion = "/agent/suggestion"
)
