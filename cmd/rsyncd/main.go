// Command rsyncd is a thin cobra entrypoint that serves rsync daemon
// modules: it accepts TCP connections, runs the
// "@RSYNCD:" module handshake via the daemon package, then drives a
// Sender over internal/transfer against the requested module's root.
// Every module this daemon serves is a pull-only mirror - a client may
// read a module's tree but never push into it - which keeps the server
// side of the handshake a single fixed role rather than a second
// argv-exchange sub-protocol this engine doesn't implement.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nthconn/rsyncgo/rlog"
)

var (
	flagAddress     string
	flagModules     []string
	flagAuthUsers   []string
	flagSecretsFile string
	flagTimeout     time.Duration
	flagLogLevel    = rlog.LogLevelInfo
)

var rootCmd = &cobra.Command{
	Use:   "rsyncd",
	Short: "Serve rsync daemon modules",
	RunE:  runServe,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagAddress, "address", ":873", "address to listen on")
	flags.StringArrayVar(&flagModules, "module", nil, "NAME=PATH, repeatable, one per served module")
	flags.StringArrayVar(&flagAuthUsers, "auth-user", nil, "MODULE:USER, repeatable, requires a matching secrets-file entry")
	flags.StringVar(&flagSecretsFile, "secrets-file", "", "path to a MODULE/USER:PASSWORD per line secrets file")
	flags.DurationVar(&flagTimeout, "timeout", 0, "per-connection I/O timeout (0 = none)")
	flags.Var(&flagLogLevel, "log-level", "emergency|alert|critical|error|warning|notice|info|debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	rlog.SetDefault(slog.New(rlog.NewHandler(os.Stderr, "rsyncd", flagLogLevel)))

	registry, err := buildRegistry(flagModules, flagAuthUsers)
	if err != nil {
		return err
	}
	secrets, err := loadSecrets(flagSecretsFile)
	if err != nil {
		return err
	}

	return serve(cmd.Context(), flagAddress, registry, secrets)
}
