// Command rsync is a thin cobra entrypoint over internal/transfer: it
// resolves two path arguments (one of which may name a daemon module as
// HOST::MODULE/PATH) into a sender/receiver pair and drives them to
// completion. Argument parsing itself stays deliberately minimal - the
// real work is
// internal/transfer and the session/negotiate/collab stack underneath it.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rerr"
	"github.com/nthconn/rsyncgo/rlog"
	"github.com/nthconn/rsyncgo/session"

	"github.com/nthconn/rsyncgo/internal/transfer"
)

var (
	flagCompressLevel int
	flagBwlimit       string
	flagDelete        bool
	flagDeleteTiming  string
	flagMaxDelete     int
	flagPartialDir    string
	flagTimeout       time.Duration
	flagModifyWindow  time.Duration
	flagUpdatePolicy  string
	flagOneFileSystem bool
	flagDaemonPort    int
	flagUser          string
	flagLogLevel      = rlog.LogLevelInfo

	defaultCompatFlags = transfer.DefaultCompatFlags
)

var rootCmd = &cobra.Command{
	Use:   "rsync SRC DST",
	Short: "Transfer a file tree between a local path and another local path or daemon module",
	Args:  cobra.ExactArgs(2),
	RunE:  runSync,
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagCompressLevel, "compress-level", 6, "compressor level, used when compression is negotiated")
	flags.StringVar(&flagBwlimit, "bwlimit", "", "bandwidth limit, e.g. 1M or 8M:512K for TX:RX")
	flags.BoolVar(&flagDelete, "delete", false, "delete extraneous destination files")
	flags.StringVar(&flagDeleteTiming, "delete-timing", "during", "during|before|after|delay")
	flags.IntVar(&flagMaxDelete, "max-delete", 0, "cap on deletions per session (0 = unlimited)")
	flags.StringVar(&flagPartialDir, "partial-dir", "", "directory for partial transfer files")
	flags.DurationVar(&flagTimeout, "timeout", 0, "I/O timeout (0 = none)")
	flags.DurationVar(&flagModifyWindow, "modify-window", 0, "mtime comparison slack for the quick check")
	flags.StringVar(&flagUpdatePolicy, "update-policy", "quick-check",
		"quick-check|checksum|size-only|ignore-existing|existing|update|ignore-times")
	flags.BoolVar(&flagOneFileSystem, "one-file-system", false, "do not cross filesystem boundaries")
	flags.IntVar(&flagDaemonPort, "port", 873, "daemon TCP port")
	flags.StringVar(&flagUser, "user", "", "daemon module user, for authenticated modules")
	flags.Var(&flagLogLevel, "log-level", "emergency|alert|critical|error|warning|notice|info|debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var re *rerr.Error
		if errors.As(err, &re) {
			os.Exit(int(re.ExitCode()))
		}
		os.Exit(int(rerr.CodeSyntax))
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	rlog.SetDefault(slog.New(rlog.NewHandler(os.Stderr, "rsync", flagLogLevel)))

	policy, err := parseUpdatePolicy(flagUpdatePolicy)
	if err != nil {
		return err
	}
	timing, err := parseDeleteTiming(flagDeleteTiming)
	if err != nil {
		return err
	}
	if !flagDelete {
		flagMaxDelete = 0
	}

	src, dst := args[0], args[1]
	srcSpec, srcIsRemote := parseDaemonSpec(src)
	_, dstIsRemote := parseDaemonSpec(dst)

	switch {
	case srcIsRemote && dstIsRemote:
		return fmt.Errorf("rsync: daemon-to-daemon transfers are not supported")
	case dstIsRemote:
		return fmt.Errorf("rsync: pushing to a daemon module is not supported by this client; " +
			"run rsyncd against the destination and pull from it, or use two local paths")
	case srcIsRemote:
		return runDaemonPull(cmd.Context(), srcSpec, dst, policy, timing)
	default:
		return runLocal(cmd.Context(), src, dst, policy, timing)
	}
}

func baseParams(role transfer.Role, mode negotiate.Mode, path string, policy session.UpdatePolicy, timing session.DeletionTiming) transfer.Params {
	return transfer.Params{
		Role:           role,
		Mode:           mode,
		ProtocolMax:    negotiate.MaxProtocolVersion,
		CompatFlags:    defaultCompatFlags,
		CompressionLvl: flagCompressLevel,
		BandwidthSpec:  flagBwlimit,
		Path:           path,
		UpdatePolicy:   policy,
		ModifyWindow:   flagModifyWindow,
		DeletionTiming: timing,
		MaxDelete:      flagMaxDelete,
		PartialDir:     flagPartialDir,
		Timeout:        flagTimeout,
		OneFileSystem:  flagOneFileSystem,
	}
}
