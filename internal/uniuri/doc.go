// Package uniuri generates cryptographically secure random strings used for
// credential secrets, session identifiers and OAuth state tokens.
package uniuri
