package kv

import (
	"github.com/ValentinKolb/anyKV/cmd/util"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	kvStore *store.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common store flags to the KV command
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(popCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(streamCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(checksumCmd)
	KeyValueCommands.AddCommand(touchCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore opens the configured store
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitLogging(); err != nil {
		return err
	}

	var err error
	kvStore, err = util.OpenStore(cmd.Context())
	return err
}

func closeStore(_ *cobra.Command, _ []string) error {
	if kvStore == nil {
		return nil
	}
	return kvStore.Close()
}
