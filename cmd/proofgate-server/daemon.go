package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/proofgate/proofgate/internal/api"
	"github.com/proofgate/proofgate/internal/audit"
	"github.com/proofgate/proofgate/internal/config"
	"github.com/proofgate/proofgate/internal/gateway"
	"github.com/proofgate/proofgate/internal/keys"
	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
	"github.com/proofgate/proofgate/pkg/verifier"
)

// Daemon wires the store, verifier, gateway, and HTTP server together.
type Daemon struct {
	cfg    *config.ServerConfig
	logger *slog.Logger

	gw        *gateway.Gateway
	server    *api.Server
	watcher   *keys.Watcher
	publisher *audit.Publisher
	closers   []io.Closer
}

// NewDaemon builds the full service from configuration.
func NewDaemon(cfg *config.ServerConfig, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Daemon{cfg: cfg, logger: logger}

	guard, reader, sink, err := d.openStore()
	if err != nil {
		return nil, err
	}

	if cfg.Audit.Enabled {
		pub, err := audit.NewPublisher(cfg.Audit.Publisher, logger)
		if err != nil {
			d.close()
			return nil, err
		}
		d.publisher = pub
		sink = audit.NewTee(sink, pub)
		logger.Info("audit publishing enabled",
			"exchange", cfg.Audit.Publisher.Exchange,
			"routing_key", cfg.Audit.Publisher.RoutingKey,
		)
	}

	oracle, err := d.loadVerifier()
	if err != nil {
		d.close()
		return nil, err
	}

	gw, err := gateway.New(cfg.GatewayConfig(), oracle, guard, sink, logger)
	if err != nil {
		d.close()
		return nil, err
	}
	d.gw = gw

	server, err := api.NewServer(cfg.APIConfig(), gw, reader, logger)
	if err != nil {
		d.close()
		return nil, err
	}
	d.server = server

	if cfg.Keys.Watch {
		watcher, err := keys.NewWatcher(cfg.Keys.VerifyingKey, gw.SwapVerifier, logger)
		if err != nil {
			d.close()
			return nil, err
		}
		d.watcher = watcher
	}

	return d, nil
}

// openStore opens the configured backing store and returns the three views
// the gateway and server need.
func (d *Daemon) openStore() (store.ReplayGuard, store.AuditReader, store.AuditLog, error) {
	if d.cfg.Store.Path == "memory" {
		d.logger.Warn("using in-memory store, used-proof state will not survive restarts")
		mem := store.NewMemory()
		return mem, mem, mem, nil
	}

	if err := os.MkdirAll(filepath.Dir(d.cfg.Store.Path), 0700); err != nil {
		return nil, nil, nil, err
	}
	db, err := store.OpenSQLite(d.cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	d.closers = append(d.closers, db)
	d.logger.Info("opened store", "path", d.cfg.Store.Path)
	return db, db, db, nil
}

// loadVerifier loads the verifying key, or installs a rejecting placeholder
// when the key is absent and hot reload will deliver one later.
func (d *Daemon) loadVerifier() (verifier.Verifier, error) {
	oracle, err := keys.Load(d.cfg.Keys.VerifyingKey)
	if err == nil {
		d.logger.Info("verifying key loaded",
			"path", d.cfg.Keys.VerifyingKey,
			"public_inputs", oracle.Params().PublicInputLen,
		)
		return oracle, nil
	}
	if errors.Is(err, keys.ErrKeyNotExist) && d.cfg.Keys.Watch {
		d.logger.Warn("verifying key missing, rejecting submissions until one appears",
			"path", d.cfg.Keys.VerifyingKey,
		)
		return verifier.RejectAll(proof.Groth16BN254Params(0), "no verifying key loaded"), nil
	}
	return nil, err
}

// Run serves until ctx is cancelled, then shuts everything down.
func (d *Daemon) Run(ctx context.Context) error {
	if d.watcher != nil {
		go d.watcher.Start(ctx)
	}

	err := d.server.Run(ctx)

	if cerr := d.shutdown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (d *Daemon) shutdown() error {
	var errs []error
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *Daemon) close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
