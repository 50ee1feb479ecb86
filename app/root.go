// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authnd",
	Short: "authnd is an identity resolution and credential management service",
	Long: `authnd resolves request identities from sessions and bearer credentials,
manages owner-scoped API credentials and reconciles federated logins
(OAuth, LDAP) against a single account directory.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
