package commands

import (
	"errors"
	"io/fs"

	"contract_deployer/internal/app/port"
	"contract_deployer/internal/infrastructure/configloader"
	networkdefinition "contract_deployer/internal/infrastructure/network/definition"
	"contract_deployer/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg       *configloader.Config
	zapLogger *zap.Logger
	appLogger port.Logger
	registry  *networkdefinition.NetworkDefinitionProvider
)

// Execute runs the deployctl root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deployctl",
		Short:         "Pick an L2, compile and deploy a contract from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if zapLogger != nil {
				_ = zapLogger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", configloader.DefaultConfigPath, "path to config.yml (missing file means defaults)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(networksCmd(), recommendCmd(), compileCmd(), deployCmd())
	return root
}

func setup() error {
	if !verbose {
		logrus.SetLevel(logrus.WarnLevel)
	}
	loaded, err := configloader.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		loaded, err = configloader.Parse(nil)
	}
	if err != nil {
		return err
	}
	configloader.ApplyEnvRPCOverrides(loaded, networkdefinition.KnownKeys())
	cfg = loaded

	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}
	zapLogger, err = zapCfg.Build()
	if err != nil {
		return err
	}
	logger.InitZap(zapLogger, level.String())
	appLogger = logger.NewZapAdapter(zapLogger)

	registry, err = networkdefinition.NewNetworkDefinitionProvider(appLogger, cfg.Networks.RPCOverrides)
	return err
}
