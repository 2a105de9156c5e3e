// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/enclavenet/enclave/log"
)

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Status is the replay progress reported by the status endpoint.
type Status struct {
	Session   string `json:"session"`
	Block     uint32 `json:"block"`
	StateHash string `json:"stateHash"`
	Calls     int    `json:"calls"`
	Reverted  int    `json:"reverted"`
	Pools     uint64 `json:"pools"`
}

// StatusFunc reports the current status.
type StatusFunc func() Status

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, errCode int, errMsg string) {
	writeJSON(w, errCode, errorResponse{
		ErrorCode:    errCode,
		ErrorMessage: errMsg,
	})
}

func getLogLevelHandler(logLevel *slog.LevelVar) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, logLevelResponse{CurrentLevel: logLevel.Level().String()})
	}
}

func postLogLevelHandler(logLevel *slog.LevelVar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		level, err := log.LvlFromString(req.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid verbosity level")
			return
		}
		logLevel.Set(level)
		writeJSON(w, http.StatusOK, logLevelResponse{CurrentLevel: logLevel.Level().String()})
	}
}

func statusHandler(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			writeError(w, http.StatusServiceUnavailable, "status not available")
			return
		}
		writeJSON(w, http.StatusOK, status())
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}
