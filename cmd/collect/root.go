package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/promptvault/internal/config"
	"github.com/timmy/promptvault/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	appLog  *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect AI image prompts into the PromptVault corpus",
	Long: `collect pulls prompts from public galleries, screens them with the
content filter and merges the survivors into a deduplicated JSON corpus.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		// stdout is reserved for progress lines.
		logCfg := logger.DefaultConfig()
		logCfg.Level = cfg.Log.Level
		logCfg.Format = "text"
		logCfg.Output = os.Stderr
		logCfg.LogFile = cfg.Log.File
		logCfg.ServiceName = "promptvault-collect"
		appLog = logger.New(logCfg.ApplyEnv())
		logger.SetDefaultLogger(appLog)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./configs/config.yaml or ./config.yaml)",
	)

	rootCmd.AddCommand(listCmd, runCmd, auditCmd, publishCmd, historyCmd)
}
