// vss: univector navigation server for small-size soccer robots.
// Robots (or vss-sim) connect over websocket, the fleet drives them toward
// goals set from the dashboard API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-vss/internal/config"
	"github.com/teslashibe/go-vss/internal/log"
)

var version = "0.1.0"

// cli holds state shared by the subcommands.
type cli struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "vss",
		Short:         "Univector navigation and motion control for VSS robots",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			log.Init(cfg.Log.Level)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./vss.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newPlanCmd(c),
		newConfigCmd(c),
	)
	return root
}

func main() {
	defer log.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
