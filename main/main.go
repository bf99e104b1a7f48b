// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/multitest/contracts/luacontract"
	"github.com/ava-labs/multitest/multitest"
)

const (
	endpoint        = "/ext/" + multitest.Name
	shutdownTimeout = 5 * time.Second
)

func main() {
	p, err := getParams(os.Args[1:])
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	if p.version {
		fmt.Printf("%s@%s\n", multitest.Name, multitest.Version)
		os.Exit(0)
	}

	log.Root().SetHandler(log.LvlFilterHandler(p.logLevel, log.StreamHandler(os.Stderr, log.TerminalFormat())))

	if err := run(p); err != nil {
		log.Error("multitest stopped", "error", err)
		os.Exit(1)
	}
}

// newApp builds the App described by [p] and stores its contracts.
func newApp(p *params) (*multitest.App, error) {
	app, err := multitest.New(
		multitest.WithChainID(p.chainID),
		multitest.WithMaxCallDepth(p.maxCallDepth),
		multitest.WithGenesis(p.genesis...),
		multitest.WithLogger(log.New("module", multitest.Name)),
	)
	if err != nil {
		return nil, err
	}
	for _, path := range p.contracts {
		c, err := luacontract.Load(path)
		if err != nil {
			return nil, err
		}
		codeID, err := app.StoreCode(c)
		if err != nil {
			return nil, err
		}
		log.Info("stored contract", "file", path, "codeID", codeID)
	}
	return app, nil
}

func run(p *params) error {
	app, err := newApp(p)
	if err != nil {
		return err
	}
	handler, err := multitest.NewHandler(app)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)

	server := &http.Server{
		Addr:              net.JoinHostPort(p.httpHost, strconv.Itoa(int(p.httpPort))),
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		log.Info("serving", "address", server.Addr, "endpoint", endpoint)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
