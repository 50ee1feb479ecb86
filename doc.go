// Package main provides the entry point for the authnd service. It runs a
// Fiber web server that resolves request identities from sessions and bearer
// credentials, manages owner-scoped API credentials and reconciles federated
// OAuth and LDAP logins against a user directory persisted with gorm.
package main
