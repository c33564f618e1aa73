package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/clustercharge/app"
	"github.com/kilianp07/clustercharge/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the allocation log and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(*cobra.Command, []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("serve").Errorf("service close: %v", err)
		}
	}()
	return svc.Serve(ctx, cfg.API.Addr)
}
