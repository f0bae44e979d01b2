package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/tKV/cmd/kv"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "fixed-capacity two-tier key-value table",
		Long: fmt.Sprintf(`tKV (v%s)

An embedded, fixed-capacity key-value table written in Go. Entries live
in RAM only or are written through to a persistent backend (NVM): a
snapshot file, DynamoDB, MinIO or S3.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
