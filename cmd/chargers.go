package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/clustercharge/infra/logger"
	"github.com/kilianp07/clustercharge/simulator"
)

var chargersCfg simulator.Config

var chargersCmd = &cobra.Command{
	Use:   "chargers",
	Short: "Simulate chargers acknowledging setpoints over MQTT",
	RunE:  runChargers,
}

func init() {
	f := chargersCmd.Flags()
	f.StringVar(&chargersCfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	f.StringVar(&chargersCfg.ClientID, "client-id", "charger-sim", "MQTT client ID")
	f.StringVar(&chargersCfg.TopicPrefix, "topic-prefix", "clustercharge", "MQTT topic prefix")
	f.DurationVar(&chargersCfg.AckLatency, "ack-latency", 0, "delay before acknowledging")
	f.Float64Var(&chargersCfg.DropRate, "drop-rate", 0, "probability of not acknowledging")
	f.Int64Var(&chargersCfg.Seed, "seed", 1, "seed of the drop decisions")
	rootCmd.AddCommand(chargersCmd)
}

func runChargers(*cobra.Command, []string) error {
	ctx, stop := signalContext()
	defer stop()
	if err := chargersCfg.Validate(); err != nil {
		return err
	}
	logg := logger.New("chargers")
	cli, err := simulator.NewMQTTClient(chargersCfg.Broker, chargersCfg.ClientID)
	if err != nil {
		return err
	}
	defer cli.Disconnect(250)

	strategy := simulator.NewRandomAck(chargersCfg.AckLatency, chargersCfg.DropRate, chargersCfg.Seed)
	sim := simulator.NewChargers(cli, chargersCfg.TopicPrefix, strategy, logg)
	if err := sim.Start(ctx); err != nil {
		return err
	}
	logg.Infof("answering setpoints under %s/", chargersCfg.TopicPrefix)
	<-ctx.Done()
	sim.Wait()
	logg.Infof("%d setpoints handled", sim.Received())
	return nil
}
