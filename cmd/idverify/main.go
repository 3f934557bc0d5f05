package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idverify/internal/config"
	"idverify/internal/logging"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "idverify",
		Short: "Identity document verification",
		Long: `idverify reads national ID cards with OCR, extracts the holder's fields
and reconciles them with what the user typed into a form.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to idverify.yaml (default: search ., ./config, /etc/idverify)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newExtractCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_ = json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": Version, "commit": Commit})
		},
	}
}

// loadConfig reads the configuration named by --config and sets up the
// global logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}
