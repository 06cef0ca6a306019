package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/cli"
	"github.com/dmitrijs2005/ciphersafe/internal/client/config"
	"github.com/spf13/cobra"
)

var (
	resetToken  string
	resetUserID string
)

var rootCmd = &cobra.Command{
	Use:   "ciphersafe",
	Short: "CipherSafe - a terminal client for the CipherSafe password manager.",
	Long: `CipherSafe keeps your passwords on the CipherSafe server and shows them
only after you confirm your account password.

Run without a command to start the interactive shell. Type 'help' inside
the shell for the commands of the current screen.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		app, err := cli.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		app.Run(cmd.Context())
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password using the link from the reset email",
	Long: `Completes a forgotten-password request. Copy the token and id
parameters from the link in the reset email:

  ciphersafe reset-password --token <token> --id <id>`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		app, err := cli.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.ResetPassword(cmd.Context(), resetToken, resetUserID)
	},
}

func init() {
	// config.LoadConfig reads the short forms itself; they are declared here
	// so cobra accepts them and lists them in the help output.
	pf := rootCmd.PersistentFlags()
	pf.StringP("server", "a", "", "backend base URL")
	pf.IntP("timeout", "t", 0, "request timeout in seconds")
	pf.StringP("db", "d", "", "local preferences database path")
	pf.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	pf.StringP("config", "c", "", "JSON config file")

	resetPasswordCmd.Flags().StringVar(&resetToken, "token", "", "token from the reset link")
	resetPasswordCmd.Flags().StringVar(&resetUserID, "id", "", "user id from the reset link")
	_ = resetPasswordCmd.MarkFlagRequired("token")
	_ = resetPasswordCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(resetPasswordCmd)
}

// loadConfig applies defaults, the JSON file and the short flags, then the
// long flag forms cobra parsed.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	f := cmd.Flags()
	if f.Changed("server") {
		cfg.ServerBaseURL, _ = f.GetString("server")
	}
	if f.Changed("timeout") {
		secs, _ := f.GetInt("timeout")
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}
	if f.Changed("db") {
		cfg.DatabasePath, _ = f.GetString("db")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	return cfg
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
