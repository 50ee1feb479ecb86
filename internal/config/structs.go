package config

import (
	"time"

	"github.com/authnd/authnd/internal/logger"
)

// Session settings.
type Session struct {
	// ExpiryTime is the fixed inactivity window after which a session expires.
	ExpiryTime time.Duration
	// CookieName is the name of the session cookie.
	CookieName string
}

// Security holds hashing related settings.
type Security struct {
	// Argon2Memory is the argon2id memory parameter in KiB.
	Argon2Memory uint32
	// Argon2Iterations is the argon2id time parameter.
	Argon2Iterations uint32
	// Argon2Parallelism is the argon2id thread count.
	Argon2Parallelism uint8
	// HashWorkers bounds how many hash operations may run concurrently,
	// so CPU-bound hashing can not starve I/O-bound request handling.
	HashWorkers int
	// SecretLength is the length of generated credential secrets.
	SecretLength int
}

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string // mysql, postgres or sqlite
	// SQLitePath is the database file path when GormEngine is sqlite.
	SQLitePath string
}

// OAuthClient holds the client id and secret registered at the provider.
type OAuthClient struct {
	ID     string
	Secret string
}

// OAuthURL holds the provider endpoints.
type OAuthURL struct {
	Authorize   string
	AccessToken string
	Userinfo    string
	// Issuer enables OIDC discovery and ID token verification when set.
	Issuer string
}

// OAuth describes a single federated login provider.
type OAuth struct {
	// Override allows a login to re-home an account whose recorded backend
	// tag names a different provider.
	Override bool
	Scope    string
	Client   OAuthClient
	URL      OAuthURL
}

// LDAP holds the directory client settings.
type LDAP struct {
	Enabled bool
	URL     string
	BaseDN  string
	BindDN  string
	// Password is the bind password for the service account.
	Password string
	// UserPattern is the DN pattern used to bind as the user,
	// e.g. "uid={username},ou=people,dc=example,dc=org".
	UserPattern string
	// Override mirrors the OAuth override flag for the ldap backend tag.
	Override bool
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// Webserver implements webserver settings.
type Webserver struct {
	Domain       string  // domain name for the webserver
	Port         int     // listening port for the webserver
	ShutDownTime int     // wait time for shutdown in seconds
	URL          string  // base url for the webserver
	Session      Session // session settings
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	Security  Security
	LDAP      LDAP
	// OAuth maps provider name to its reconciliation policy and endpoints.
	// Built once at startup and never mutated.
	OAuth map[string]OAuth
}
