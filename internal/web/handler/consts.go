package handler

const (
	// RootPath is the root path of a route group.
	RootPath = "/"

	// CheckAliveURI is the liveness probe path, excluded from access logs.
	CheckAliveURI = "/checkalive"

	// SelfAlias resolves to the authenticated caller in user-scoped routes.
	SelfAlias = "_self"

	// ErrNilACDFatalLogMsg is used if the app, cfg or db pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
