package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ValentinKolb/anyKV/cmd/kv"
	"github.com/ValentinKolb/anyKV/cmd/mirror"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "anykv",
		Short: "uniform key-value access to files, databases and object storage",
		Long: fmt.Sprintf(`anyKV (v%s)

One key-value interface over the local filesystem, zip archives, sqlite,
postgres, redis and s3 compatible object storage. Select a store with a uri
(e.g. ./data, memory://, sqlite:///tmp/db.sqlite, redis://localhost:6379).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of anyKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("anyKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(mirror.MirrorCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
