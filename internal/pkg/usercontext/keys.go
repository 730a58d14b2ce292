package usercontext

// Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyCSRFToken   = "csrf"
)
