package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/authnd/authnd/internal/config"
)

const defaultLDAPTimeout = 10

// LDAPProvider authenticates username/password pairs against a directory
// server by binding as the user.
type LDAPProvider struct {
	cfg config.LDAP
}

// NewLDAPProvider creates an LDAP provider from configuration.
func NewLDAPProvider(cfg config.LDAP) (*LDAPProvider, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLDAPTimeout
	}

	return &LDAPProvider{cfg: cfg}, nil
}

// connect establishes a connection to the directory server. The scheme of
// the configured URL selects plain LDAP or LDAPS.
func (p *LDAPProvider) connect() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	conn.SetTimeout(time.Duration(p.cfg.Timeout) * time.Second)

	return conn, nil
}

// userDN builds the DN to bind as from the configured pattern,
// e.g. "uid={username},ou=people,dc=example,dc=org".
func (p *LDAPProvider) userDN(username string) string {
	return strings.ReplaceAll(p.cfg.UserPattern, "{username}", ldap.EscapeDN(username))
}

// Authenticate binds as the user to verify the password and returns the
// profile to reconcile. An empty password is rejected up front; directory
// servers treat it as an anonymous bind, which would succeed.
func (p *LDAPProvider) Authenticate(username, password string) (*Userinfo, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidLDAPCredentials
	}

	conn, err := p.connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	userDN := p.userDN(username)

	if err := conn.Bind(userDN, password); err != nil {
		log.Debug().Err(err).Str("dn", userDN).Msg("LDAP user bind failed")
		return nil, ErrInvalidLDAPCredentials
	}

	info := &Userinfo{Login: username}

	// attributes are best effort, the bind already authenticated the user
	if entry, err := p.fetchEntry(conn, userDN); err != nil {
		log.Warn().Err(err).Str("dn", userDN).Msg("failed to read LDAP attributes")
	} else {
		info.Email = entry.GetAttributeValue("mail")
		info.Name = entry.GetAttributeValue("cn")
	}

	return info, nil
}

// fetchEntry reads the user's own entry. When a service account is
// configured it re-binds first; some directories deny users read access to
// their attributes.
func (p *LDAPProvider) fetchEntry(conn *ldap.Conn, userDN string) (*ldap.Entry, error) {
	if p.cfg.BindDN != "" {
		if err := conn.Bind(p.cfg.BindDN, p.cfg.Password); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		userDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1,
		p.cfg.Timeout,
		false,
		"(objectClass=*)",
		[]string{"mail", "cn"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user entry: %w", err)
	}

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("no entry at %s", userDN)
	}

	return result.Entries[0], nil
}

// TestConnection verifies the server is reachable and the service account
// credentials bind, for use at startup.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.cfg.BindDN != "" {
		if err := conn.Bind(p.cfg.BindDN, p.cfg.Password); err != nil {
			return fmt.Errorf("bind failed: %w", err)
		}
	}

	return nil
}
