// Package app wires the relay plane's components together: config,
// logger, Credential Store, Device Relay, Client Proxy, optional
// lifecycle event publisher, and the admin HTTP surface.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brewlink/relay/pkg/config"
	"github.com/brewlink/relay/pkg/credstore"
	"github.com/brewlink/relay/pkg/events"
	"github.com/brewlink/relay/pkg/httpapi"
	"github.com/brewlink/relay/pkg/lifecycle"
	"github.com/brewlink/relay/pkg/proxy"
	"github.com/brewlink/relay/pkg/relay"
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the relay plane using the provided options and blocks
// until the HTTP listener returns.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(&cfg.Logging); err != nil {
		return err
	}

	mainLogger := lifecycle.CreateComponentLogger("relay-main")

	store, err := credstore.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	relaySrv := relay.New(relay.Options{
		Store:             store,
		Logger:            lifecycle.CreateComponentLogger("device-relay"),
		PingInterval:      time.Duration(cfg.Relay.PingIntervalSeconds) * time.Second,
		MaxMissedPings:    cfg.Relay.MaxMissedPings,
		ReconcileInterval: time.Duration(cfg.Relay.ReconcileIntervalSecs) * time.Second,
	})
	defer relaySrv.Shutdown()

	proxySrv := proxy.New(proxy.Options{
		Store:           store,
		Sender:          relaySrv,
		Logger:          lifecycle.CreateComponentLogger("client-proxy"),
		PingInterval:    time.Duration(cfg.Proxy.PingIntervalSeconds) * time.Second,
		MaxMissedPongs:  cfg.Proxy.MaxMissedPongs,
		QueueCapacity:   cfg.Proxy.QueueCapacity,
		QueueTTL:        time.Duration(cfg.Proxy.QueueTTLSeconds) * time.Second,
		CacheStaleAfter: time.Duration(cfg.Proxy.CacheStaleSeconds) * time.Second,
	})
	defer proxySrv.Shutdown()

	if cfg.NATS.Enabled {
		publisher, nc, err := events.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream, lifecycle.CreateComponentLogger("events"))
		if err != nil {
			return err
		}

		defer nc.Close()

		unsubscribe := events.Subscribe(relaySrv, publisher)
		defer unsubscribe()
	}

	admin := httpapi.New(relaySrv, proxySrv, httpapi.WithLogger(lifecycle.CreateComponentLogger("admin-api")))

	mux := http.NewServeMux()
	mux.Handle("/ws/device", relaySrv)
	mux.Handle("/ws", proxySrv)
	mux.Handle("/", admin)

	mainLogger.Info().Str("addr", cfg.HTTPAddr).Msg("starting relay plane")

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
