// Command cncli is a Cardano stake-pool operator's companion tool: it
// speaks the Ouroboros mini-protocols directly to a running node, keeps a
// local relational projection of the header chain, and computes epoch
// nonces and VRF leader schedules from it.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdconfig "github.com/cardano-community/cncli/cmd/config"
)

var (
	cfgEnv  string
	cfgFile string
	logger  = logrus.StandardLogger()
)

func main() {
	root := &cobra.Command{
		Use:   "cncli",
		Short: "Cardano stake-pool operator companion tool",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdconfig.LoadConfig(cfgEnv)
			if level, err := logrus.ParseLevel(cmdconfig.AppConfig.Logging.Level); err == nil {
				logger.SetLevel(level)
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgEnv, "env", "", "configuration environment to merge (e.g. \"production\")")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "unused; configuration is loaded via pkg/config")

	root.AddCommand(pingCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(nonceCmd())
	root.AddCommand(leaderlogCmd())
	root.AddCommand(sendTipCmd())
	root.AddCommand(sendSlotsCmd())
	root.AddCommand(signCmd())
	root.AddCommand(verifyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// firstNonEmpty returns the first non-empty string among candidates,
// used to let a CLI flag take precedence over an env-sourced override.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
