package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/clustercharge/api/allocation"
	"github.com/kilianp07/clustercharge/api/clusters"
	"github.com/kilianp07/clustercharge/config"
	"github.com/kilianp07/clustercharge/core/charging"
	"github.com/kilianp07/clustercharge/core/charging/logging"
	"github.com/kilianp07/clustercharge/core/events"
	coremetrics "github.com/kilianp07/clustercharge/core/metrics"
	coremon "github.com/kilianp07/clustercharge/core/monitoring"
	"github.com/kilianp07/clustercharge/core/model"
	"github.com/kilianp07/clustercharge/infra/logger"
	"github.com/kilianp07/clustercharge/infra/metrics"
	"github.com/kilianp07/clustercharge/infra/monitoring"
	"github.com/kilianp07/clustercharge/infra/mqtt"
	"github.com/kilianp07/clustercharge/internal/eventbus"
	"github.com/kilianp07/clustercharge/simulation"
)

// Service wires the charging driver to its log store, metrics sinks, error
// monitor and optional MQTT setpoint publisher.
type Service struct {
	Config     *config.Config
	RunID      string
	Store      logging.LogStore
	Controller *charging.ClusterController
	Driver     *charging.Driver

	log       logger.Logger
	sink      coremetrics.MetricsSink
	client    *mqtt.PahoClient
	suppliers []*mqtt.SetpointSupplier
	stop      context.CancelFunc
	collected <-chan struct{}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	store, err := logging.Open(cfg.Logging.Options())
	if err != nil {
		return nil, fmt.Errorf("log store: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{Config: cfg, RunID: uuid.NewString(), Store: store, log: logg, sink: sink}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			if store != nil {
				_ = store.Close()
			}
			closeSink(sink)
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
	}

	bus := eventbus.NewTyped[events.TickEvent]()
	ctrl := charging.NewClusterController(nil, logger.New("controller"), nil)
	ctrl.SetLogStore(store)
	ctrl.SetBus(bus)
	ctrl.SetRunID(svc.RunID)
	ctx, stop := context.WithCancel(context.Background())
	svc.stop = stop
	svc.collected = metrics.StartEventCollector(ctx, bus, sink)
	svc.Controller = ctrl
	svc.Driver = charging.NewDriver(ctrl, cfg.Simulation.Workers)
	return svc, nil
}

// Runner returns a scenario runner driven by the service. Setpoints are
// published for every charger when MQTT is enabled.
func (s *Service) Runner(sc *simulation.Scenario) *simulation.Runner {
	r := &simulation.Runner{
		Scenario: sc,
		Driver:   s.Driver,
		Logger:   logger.New("runner"),
		Tick:     s.Config.Simulation.Tick(),
	}
	if s.client != nil {
		r.Decorate = func(sys *model.System) {
			s.suppliers = mqtt.Attach(sys, s.client, s.Config.MQTT.AckTimeout(), logger.New("setpoints"))
		}
	}
	return r
}

// Handler serves the allocation log, the cluster status and the Prometheus
// metrics.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(nil))
	mux.Handle("/api/clusters/status", clusters.NewStatusHandler(s.Driver))
	if s.Store != nil {
		mux.Handle("/api/allocation/logs", allocation.NewLogHandler(s.Store, s.Config.API.Token))
	}
	return mux
}

// Serve runs the HTTP API on addr until ctx is canceled.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close waits for pending acknowledgements, drains the event collector and
// releases every resource held by the service.
func (s *Service) Close() error {
	for _, sp := range s.suppliers {
		sp.Wait()
	}
	err := s.Controller.Close()
	<-s.collected
	s.stop()
	closeSink(s.sink)
	if s.client != nil {
		s.client.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	return err
}

// closeSink releases sinks holding a client, such as InfluxSink.
func closeSink(sink coremetrics.MetricsSink) {
	if c, ok := sink.(interface{ Close() }); ok {
		c.Close()
	}
}
