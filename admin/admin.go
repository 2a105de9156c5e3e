// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin serves the runtime administration endpoints: log level, status and health.
package admin

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// HTTPHandler returns the admin routes under /admin.
func HTTPHandler(logLevel *slog.LevelVar, status StatusFunc) http.Handler {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()
	sub.HandleFunc("/loglevel", getLogLevelHandler(logLevel)).Methods(http.MethodGet)
	sub.HandleFunc("/loglevel", postLogLevelHandler(logLevel)).Methods(http.MethodPost)
	sub.HandleFunc("/status", statusHandler(status)).Methods(http.MethodGet)
	sub.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	return handlers.CompressHandler(router)
}

// StartServer serves the admin API on addr. It returns the base url and a function that
// stops the server.
func StartServer(addr string, logLevel *slog.LevelVar, status StatusFunc) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", addr)
	}

	srv := &http.Server{
		Handler:           HTTPHandler(logLevel, status),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
	}
	var eg errgroup.Group
	eg.Go(func() error {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return "http://" + listener.Addr().String() + "/admin", func() {
		srv.Close()
		eg.Wait()
	}, nil
}
