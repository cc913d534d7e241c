package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"netsim/internal/command"
	"netsim/internal/config"
	"netsim/internal/engine"
	"netsim/internal/log"
	"netsim/internal/metrics"
	"netsim/pkg/driver"
	"netsim/pkg/driver/fake"
	"netsim/pkg/driver/pcapdriver"
)

var (
	daemonInterface  string
	daemonMetricsAddr string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the netsim daemon in the foreground",
	Long: `Run the netsim control surface in the foreground.

The daemon loads its settings-profile store, starts the Unix Domain Socket
control surface, and waits for start_processing/stop_processing and the rest
of the command surface until it receives SIGTERM or SIGINT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonInterface, "interface", "lo",
		"network interface the pcap driver captures on")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "",
		"address to serve Prometheus metrics on (e.g. :9090); empty disables the metrics server")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon() error {
	log.Init(log.DefaultLoggerConfig())

	store, err := config.NewStore(configDir)
	if err != nil {
		return err
	}

	newDrv := func(purpose string) driver.Driver {
		if daemonInterface == "fake" {
			return fake.New(nil, 4096)
		}
		return pcapdriver.New(daemonInterface)
	}

	eng := engine.New(store, nil, newDrv)
	handler := command.NewCommandHandler(eng)
	server := command.NewUDSServer(socketPath, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if daemonMetricsAddr != "" {
		metricsServer := metrics.NewServer(daemonMetricsAddr, "")
		if err := metricsServer.Start(ctx); err != nil {
			return err
		}
		defer metricsServer.Stop(context.Background())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.GetLogger().WithField("signal", sig).Info("daemon: received shutdown signal")
		if eng.Running() {
			_ = eng.StopProcessing()
		}
		cancel()
	}()

	log.GetLogger().WithField("socket", socketPath).WithField("interface", daemonInterface).Info("daemon starting")
	return server.Start(ctx)
}
