package app

import (
	"context"
	"fmt"

	"github.com/fletescerealeros/fletes/config"
	"github.com/fletescerealeros/fletes/core/classify"
	"github.com/fletescerealeros/fletes/core/conversation"
	"github.com/fletescerealeros/fletes/core/geo"
	"github.com/fletescerealeros/fletes/core/match"
	coremetrics "github.com/fletescerealeros/fletes/core/metrics"
	"github.com/fletescerealeros/fletes/core/proposal"
	"github.com/fletescerealeros/fletes/core/store"
	"github.com/fletescerealeros/fletes/infra/delegate"
	"github.com/fletescerealeros/fletes/infra/logger"
	"github.com/fletescerealeros/fletes/infra/metrics"
	"github.com/fletescerealeros/fletes/infra/storage"
	"github.com/fletescerealeros/fletes/infra/transport"
	"github.com/fletescerealeros/fletes/internal/eventbus"
)

// Service orchestrates the chat handler, the MQTT gateway and the metric
// sinks. It owns their lifecycles.
type Service struct {
	Handler *conversation.Handler
	Store   store.Store

	gateway *transport.MQTTGateway
	bus     *eventbus.Bus[eventbus.Event]
	sink    coremetrics.Sink
	log     logger.Logger
	cfg     *config.Config
	closers []func() error
}

// New creates a Service from the configuration. The MQTT connection is not
// opened until Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	st, closer, err := newStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	gaz := geo.Defaults()
	classifier, err := newClassifier(cfg.Classifier, gaz)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	bus := eventbus.New[eventbus.Event]()
	handler := conversation.New(
		st,
		classifier,
		match.NewScorer(gaz, logger.New("scorer")),
		proposal.New(st, logger.New("proposal")),
		bus,
		logger.New("conversation"),
	)

	svc := &Service{
		Handler: handler,
		Store:   st,
		bus:     bus,
		log:     logg,
		cfg:     cfg,
	}
	if closer != nil {
		svc.closers = append(svc.closers, closer)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		in := cfg.Metrics.Influx
		sink := metrics.NewInfluxSinkWithFallback(in.URL, in.Token, in.Org, in.Bucket)
		if c, ok := sink.(*metrics.InfluxSink); ok {
			svc.closers = append(svc.closers, func() error { c.Close(); return nil })
		}
		sinks = append(sinks, sink)
	}
	switch len(sinks) {
	case 0:
		svc.sink = coremetrics.NopSink{}
	case 1:
		svc.sink = sinks[0]
	default:
		svc.sink = metrics.NewMultiSink(sinks...)
	}
	return svc, nil
}

func newStore(cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "sqlite":
		st, err := storage.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %s", cfg.Backend)
	}
}

func newClassifier(cfg config.ClassifierConfig, gaz *geo.Gazetteer) (classify.Engine, error) {
	switch cfg.Mode {
	case "rules":
		return classify.NewRuleEngine(gaz, logger.New("classifier")), nil
	case "gemini":
		if cfg.APIKey == "" {
			// No key, no delegate. The rules work offline.
			return classify.NewRuleEngine(gaz, logger.New("classifier")), nil
		}
		completer, err := delegate.NewGeminiCompleter(context.Background(), cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return classify.NewDelegateEngine(completer, classify.SystemPrompt(gaz), logger.New("classifier")), nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %s", cfg.Mode)
	}
}

// Run connects to the broker and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartCollector(ctx, s.bus, s.sink)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	gw, err := transport.NewMQTTGateway(s.cfg.MQTT, s.Handler)
	if err != nil {
		return fmt.Errorf("mqtt gateway: %w", err)
	}
	s.gateway = gw
	s.log.Infof("fletes service running")

	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.gateway != nil {
		s.gateway.Disconnect()
	}
	s.bus.Close()
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
