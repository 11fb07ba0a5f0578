package kv

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ValentinKolb/anyKV/cmd/util"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/spf13/cobra"
)

// readValue returns the value argument, "-" reads it from stdin
func readValue(arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(os.Stdin)
	}
	return []byte(arg), nil
}

var (
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := kvStore.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return util.PrintValue(cmd.OutOrStdout(), value)
		},
	}
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Stores the value for a key (use - to read the value from stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readValue(args[1])
			if err != nil {
				return err
			}
			mode, err := util.GetMode()
			if err != nil {
				return err
			}
			// text is stored as it is unless a structured mode was requested
			var value any = data
			if mode == serialize.ModeJSON {
				if err := json.Unmarshal(data, &value); err != nil {
					return fmt.Errorf("value is not valid json: %w", err)
				}
			}
			if err := kvStore.Put(cmd.Context(), args[0], value, store.WithMode(mode)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "put successfully")
			return nil
		},
	}
	popCmd = &cobra.Command{
		Use:   "pop [key]",
		Short: "Reads the value for a key and deletes it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := kvStore.Pop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return util.PrintValue(cmd.OutOrStdout(), value)
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []store.Option
			if ignore, _ := cmd.Flags().GetBool("ignore-errors"); ignore {
				opts = append(opts, store.IgnoreErrors())
			}
			if err := kvStore.Delete(cmd.Context(), args[0], opts...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "delete successfully")
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := kvStore.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%t\n", found)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists the keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.Filter{}
			filter.Prefix, _ = cmd.Flags().GetString("prefix")
			filter.ExcludePrefix, _ = cmd.Flags().GetString("exclude-prefix")
			filter.Glob, _ = cmd.Flags().GetString("glob")

			for key, err := range kvStore.IterateKeys(cmd.Context(), filter) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	streamCmd = &cobra.Command{
		Use:   "stream [key]",
		Short: "Prints the value for a key line by line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for value, err := range kvStore.Stream(cmd.Context(), args[0]) {
				if err != nil {
					return err
				}
				if err := util.PrintValue(cmd.OutOrStdout(), value); err != nil {
					return err
				}
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [key]",
		Short: "Prints the metadata of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := kvStore.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return util.PrintValue(cmd.OutOrStdout(), stats)
		},
	}
	checksumCmd = &cobra.Command{
		Use:   "checksum [key]",
		Short: "Prints the checksum of the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algorithm, _ := cmd.Flags().GetString("algorithm")
			sum, err := kvStore.Checksum(cmd.Context(), args[0], algorithm)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	touchCmd = &cobra.Command{
		Use:   "touch [key]",
		Short: "Stores the current time at a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := kvStore.Touch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ts.Format(time.RFC3339Nano))
			return nil
		},
	}
)

func init() {
	delCmd.Flags().Bool("ignore-errors", false, util.WrapString("Ignore errors of the storage backend"))

	keysCmd.Flags().String("prefix", "", util.WrapString("Only list keys below this path"))
	keysCmd.Flags().String("exclude-prefix", "", util.WrapString("Skip keys below this path"))
	keysCmd.Flags().String("glob", "", util.WrapString("Only list keys matching this glob (e.g. **/*.json)"))

	checksumCmd.Flags().String("algorithm", store.DefaultChecksumAlgorithm, util.WrapString(fmt.Sprintf("Hash algorithm (%v)", store.ChecksumAlgorithms())))
}
