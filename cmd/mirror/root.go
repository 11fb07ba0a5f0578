package mirror

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ValentinKolb/anyKV/cmd/util"
	"github.com/ValentinKolb/anyKV/lib/mirror"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	// MirrorCmd copies all keys of one store into another
	MirrorCmd = &cobra.Command{
		Use:   "mirror [source] [target]",
		Short: "Mirror all keys from one store to another",
		Long: `Copy all keys (optionally filtered by prefix or glob) from the source store to the target store.
Values are copied as raw bytes. Keys that already exist in the target are skipped unless --overwrite is set.
Both stores are given as uri (file path, file://, memory://, sqlite://, postgres://, redis://, s3:// or a .zip archive).`,
		Args:    cobra.ExactArgs(2),
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "prefix"
	MirrorCmd.Flags().String(key, "", util.WrapString("Only mirror keys below this prefix"))
	key = "exclude-prefix"
	MirrorCmd.Flags().String(key, "", util.WrapString("Skip keys below this prefix"))
	key = "glob"
	MirrorCmd.Flags().String(key, "", util.WrapString("Only mirror keys matching this glob pattern (e.g. **/*.json)"))
	key = "overwrite"
	MirrorCmd.Flags().Bool(key, false, util.WrapString("Overwrite keys that already exist in the target"))
	key = "threads"
	MirrorCmd.Flags().Int(key, 0, util.WrapString("Number of copy threads (0 = env ANYKV_WORKER_THREADS or the number of cpus)"))
	key = "heartbeat"
	MirrorCmd.Flags().Duration(key, 0, util.WrapString("Interval of the progress log (0 = env ANYKV_WORKER_HEARTBEAT)"))
	key = "log-level"
	MirrorCmd.Flags().String(key, "info", util.WrapString("Log level (debug, info, warn, error)"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return util.InitLogging()
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v := util.Viper()
	settings := util.GetSettings()

	source, err := store.NewFromURI(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to open source store: %w", err)
	}
	defer source.Close()

	target, err := store.NewFromURI(ctx, args[1])
	if err != nil {
		return fmt.Errorf("failed to open target store: %w", err)
	}
	defer target.Close()

	opts := mirror.Options{
		Prefix:          v.GetString("prefix"),
		ExcludePrefix:   v.GetString("exclude-prefix"),
		Glob:            v.GetString("glob"),
		Overwrite:       v.GetBool("overwrite"),
		Threads:         v.GetInt("threads"),
		Heartbeat:       v.GetDuration("heartbeat"),
		ExitOnInterrupt: true,
	}
	if opts.Threads <= 0 {
		opts.Threads = settings.WorkerThreads
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = settings.WorkerHeartbeat
	}

	result, runErr := mirror.Mirror(ctx, source, target, opts)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	return runErr
}
