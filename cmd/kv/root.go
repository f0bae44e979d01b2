package kv

import (
	"context"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/common"
	"github.com/ValentinKolb/tKV/lib/dbm"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var (
	log = logger.GetLogger("cmd")

	kvStore   *dbm.Store
	kvBackend dbm.Backend
	kvConfig  *common.StoreConfig

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value operations on a tkv table",
		Long: `Perform key-value operations on a tkv table.

Every invocation starts with an empty table. RAM entries therefore only live
for the duration of one command, NVM entries are read back from the backend.`,
		PersistentPreRunE: setupKVStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add table and backend flags to the KV command
	util.SetupStoreFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(freeCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVStore initializes the logger, the backend and the store
func setupKVStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetStoreConfig()
	if err != nil {
		return err
	}
	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return err
	}
	log.Debugf("store configuration:%s", conf.String())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kvConfig = conf
	kvStore, kvBackend, err = util.OpenStore(ctx, conf)
	return err
}
