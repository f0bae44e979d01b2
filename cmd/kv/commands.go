package kv

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ValentinKolb/tKV/lib/dbm"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long: `Sets the value for a key.

New keys are stored with the tier given by --tier. Existing keys keep
their tier, only the value is replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tierFlag, _ := cmd.Flags().GetString("tier")
			tier, err := dbm.ParseTier(tierFlag)
			if err != nil {
				return err
			}
			if err := kvStore.Insert(args[0], []byte(args[1]), tier); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := kvStore.GetValue(key)
			switch {
			case dbm.CodeOf(err) == dbm.RetCNotFound:
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			case dbm.CodeOf(err) == dbm.RetCBufferTooSmall:
				return fmt.Errorf("key %s exists but its value exceeds --max-value-length %d: %w", key, kvStore.Config().MaxValueLength, err)
			case err != nil:
				return err
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Long: `Deletes a key value pair.

Only keys resident in the table can be deleted. The command reads the key
first so that NVM entries are pulled from the backend and removed there too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			// pull the key into the table, the error surfaces on delete
			_, _ = kvStore.GetValue(key)
			if err := kvStore.Delete(key); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	freeCmd = &cobra.Command{
		Use:   "free",
		Short: "Prints the number of free slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			free, err := kvStore.FreeSpace()
			if err != nil {
				return err
			}
			fmt.Printf("free=%d, capacity=%d\n", free, kvConfig.Capacity)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the table state and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := kvStore.Info()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if withMetrics, _ := cmd.Flags().GetBool("metrics"); withMetrics {
				fmt.Println()
				kvStore.WriteMetrics(os.Stdout)
			}
			return nil
		},
	}
)

func init() {
	setCmd.Flags().String("tier", "ram", "Tier of new keys (ram, nvm)")
	infoCmd.Flags().Bool("metrics", false, "Also print the store metrics in Prometheus text format")
}
