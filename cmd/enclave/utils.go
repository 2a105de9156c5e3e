// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/enclavenet/enclave/cache"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/lvldb"
	"github.com/enclavenet/enclave/metrics"
)

func initLogger(ctx *cli.Context) (*slog.LevelVar, error) {
	lvl, err := log.LvlFromString(ctx.String(verbosityFlag.Name))
	if err != nil {
		return nil, errors.Wrap(err, "parse verbosity flag")
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(lvl)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, logLevel)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, logLevel, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return logLevel, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

// openDB opens the leveldb under the data dir, or an in-memory one if no dir is given.
// A quarter of the cache budget goes to the value cache in front of leveldb.
func openDB(ctx *cli.Context) (*cache.Store, string, error) {
	cacheMB := ctx.Int(cacheFlag.Name)
	valueCacheSize := cacheMB * 1024 * 1024 / 4

	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		db, err := lvldb.NewMem()
		if err != nil {
			return nil, "", err
		}
		return cache.NewStore(db, valueCacheSize), "Memory", nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", errors.Wrapf(err, "create data dir [%v]", dir)
	}
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              cacheMB - cacheMB/4,
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, "", err
	}
	return cache.NewStore(db, valueCacheSize), dir, nil
}

func startMetricsServer(addr string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics API addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var eg errgroup.Group
	eg.Go(func() error {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return "http://" + listener.Addr().String() + "/metrics", func() {
		srv.Close()
		eg.Wait()
	}, nil
}
