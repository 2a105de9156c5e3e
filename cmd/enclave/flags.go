// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/enclavenet/enclave/enclave"
)

var (
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a genesis yaml file (dev genesis if omitted)",
	}
	scenarioFlag = cli.StringFlag{
		Name:  "scenario",
		Usage: "path to the scenario yaml file to replay",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory of the state database (in memory if omitted)",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 64,
		Usage: "megabytes of memory allocated to the state database cache",
	}
	strictFlag = cli.BoolFlag{
		Name:  "strict",
		Usage: "check pool invariants after every mutation",
	}
	receiptsFlag = cli.BoolFlag{
		Name:  "receipts",
		Usage: "print the receipt of every call",
	}
	waitFlag = cli.BoolFlag{
		Name:  "wait",
		Usage: "keep the metrics and admin servers running after the replay until interrupted",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Value: "info",
		Usage: "log verbosity (trace|debug|info|warn|error|crit)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "metrics service listening address, metrics disabled if empty",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Usage: "admin service listening address, admin disabled if empty",
	}

	pidFlag = cli.Uint64Flag{
		Name:  "pid",
		Usage: "pool id",
	}
	workerFlag = cli.StringFlag{
		Name:  "worker",
		Usage: "worker public key in hex, or a worker name",
	}
	txFlag = cli.Uint64Flag{
		Name:  "tx",
		Value: 20,
		Usage: "expected heartbeat count per period",
	}
	workersFlag = cli.Uint64Flag{
		Name:  "workers",
		Usage: "number of online workers",
	}
	blockSecsFlag = cli.Uint64Flag{
		Name:  "block-secs",
		Value: uint64(enclave.SecondsPerBlock),
		Usage: "block interval in seconds",
	}
)
