// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package node runs the star registry service.
package node

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"
	"gitlab.com/accumulatenetwork/starregistry/config"
	"gitlab.com/accumulatenetwork/starregistry/internal/api"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"gitlab.com/accumulatenetwork/starregistry/pkg/ledger"
	"gitlab.com/accumulatenetwork/starregistry/pkg/signature"
	"gitlab.com/accumulatenetwork/starregistry/pkg/validation"
	"golang.org/x/sync/errgroup"
)

// Node owns the ledger, the validation registry, and the HTTP server.
type Node struct {
	Config *config.Config

	logger   logging.OptionalLogger
	ledger   *ledger.Blockchain
	registry *validation.Registry
	server   *http.Server
	listener net.Listener

	stopOnce sync.Once
	stopErr  error
}

// New creates a node. Nothing is opened until [Node.Start].
func New(cfg *config.Config, logger logging.Logger) *Node {
	n := new(Node)
	n.Config = cfg
	n.logger.Set(logger, "module", "node")
	return n
}

// Start opens and loads the ledger, starts the sweep, and starts listening.
// It does not serve requests; see [Node.Run].
func (n *Node) Start(ctx context.Context) error {
	cfg := n.Config
	store, err := OpenStore(cfg, n.logger.L)
	if err != nil {
		return errors.UnknownError.WithFormat("open store: %w", err)
	}

	n.ledger, err = ledger.Open(ctx, store,
		ledger.WithLogger(n.logger.L),
		ledger.WithLocation(cfg.StoragePath()))
	if err != nil {
		_ = store.Close()
		return errors.UnknownError.WithFormat("load ledger: %w", err)
	}

	params, err := NetworkParams(cfg.Validation.Network)
	if err != nil {
		return n.abort(err)
	}
	schedule, err := cron.ParseStandard(cfg.Validation.SweepSchedule)
	if err != nil {
		return n.abort(errors.BadRequest.WithFormat("invalid sweep schedule: %w", err))
	}

	n.registry = validation.NewRegistry(signature.BitcoinMessage{Params: params},
		validation.WithWindow(cfg.Validation.Window),
		validation.WithSchedule(schedule),
		validation.WithLogger(n.logger.L))

	handler, err := api.NewHandler(api.Options{
		Logger:   n.logger.L,
		Ledger:   n.ledger,
		Registry: n.registry,
	})
	if err != nil {
		return n.abort(err)
	}

	network, address, err := config.ParseListenAddress(cfg.API.ListenAddress)
	if err != nil {
		return n.abort(err)
	}
	n.listener, err = net.Listen(network, address)
	if err != nil {
		return n.abort(errors.UnknownError.WithFormat("listen on %s: %w", cfg.API.ListenAddress, err))
	}

	err = n.registry.Start()
	if err != nil {
		_ = n.listener.Close()
		return n.abort(err)
	}

	n.server = &http.Server{Handler: handler, ReadHeaderTimeout: cfg.API.ReadHeaderTimeout}
	n.logger.Info("Node started", "address", n.listener.Addr(), "storage", cfg.Storage.Type)
	return nil
}

func (n *Node) abort(err error) error {
	_ = n.ledger.Close()
	return err
}

// Addr returns the address the node is listening on.
func (n *Node) Addr() net.Addr {
	return n.listener.Addr()
}

// Ledger returns the ledger.
func (n *Node) Ledger() *ledger.Blockchain { return n.ledger }

// Run starts the node and serves requests until the context is canceled or
// the server fails, then stops the node.
func (n *Node) Run(ctx context.Context) error {
	err := n.Start(ctx)
	if err != nil {
		return err
	}
	return n.Serve(ctx)
}

// Serve serves requests on a started node until the context is canceled or
// the server fails, then stops the node.
func (n *Node) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := n.server.Serve(n.listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.UnknownError.WithFormat("serve: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		return n.Stop()
	})
	return g.Wait()
}

// Stop shuts down the server, stops the sweep, and closes the ledger. Stop
// may be called more than once.
func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		if n.server == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), n.Config.API.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := n.server.Shutdown(ctx); err != nil {
			errs = append(errs, errors.UnknownError.WithFormat("shutdown server: %w", err))
		}
		n.registry.Stop()
		if err := n.ledger.Close(); err != nil {
			errs = append(errs, errors.UnknownError.WithFormat("close ledger: %w", err))
		}

		if len(errs) > 0 {
			n.stopErr = errs[0]
			n.logger.Error("Node stopped with errors", "errors", errs)
			return
		}
		n.logger.Info("Node stopped")
	})
	return n.stopErr
}
