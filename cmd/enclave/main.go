// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// enclave replays mining and stake pool scenarios against a persistent state.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/enclavenet/enclave/admin"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/stakepool"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/genesis"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Enclave",
		Usage:   "Miner lifecycle and stake pool accounting engine",
		Commands: []cli.Command{
			{
				Name:  "replay",
				Usage: "replay a scenario on top of a genesis state",
				Flags: []cli.Flag{
					genesisFlag,
					scenarioFlag,
					dataDirFlag,
					cacheFlag,
					strictFlag,
					receiptsFlag,
					waitFlag,
					verbosityFlag,
					jsonLogsFlag,
					metricsAddrFlag,
					adminAddrFlag,
				},
				Action: replayAction,
			},
			{
				Name:   "subaccount",
				Usage:  "print the sub-account of a pool worker",
				Flags:  []cli.Flag{pidFlag, workerFlag},
				Action: subAccountAction,
			},
			{
				Name:   "powtarget",
				Usage:  "print the heartbeat target",
				Flags:  []cli.Flag{txFlag, workersFlag, blockSecsFlag},
				Action: powTargetAction,
			},
			{
				Name:   "dev-genesis",
				Usage:  "print the dev genesis config",
				Action: devGenesisAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replayAction(ctx *cli.Context) error {
	defer func() { log.Info("exited") }()

	logLevel, err := initLogger(ctx)
	if err != nil {
		return err
	}

	cfg := genesis.NewDevConfig()
	if path := ctx.String(genesisFlag.Name); path != "" {
		if cfg, err = genesis.Load(path); err != nil {
			return errors.Wrap(err, "load genesis")
		}
	}
	var scenario *Scenario
	if path := ctx.String(scenarioFlag.Name); path != "" {
		if scenario, err = loadScenario(path); err != nil {
			return errors.Wrap(err, "load scenario")
		}
	} else {
		scenario = &Scenario{}
	}

	db, dir, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		hit, miss, rate := db.Stats().Counts()
		log.Info("closing database...", "cacheHit", hit, "cacheMiss", miss, "hitRate", fmt.Sprintf("%.2f", rate))
		db.Close()
	}()
	log.Info("database opened", "dir", dir)

	r := newReplayer(db, ctx.Bool(strictFlag.Name), os.Stdout)
	r.receipts = ctx.Bool(receiptsFlag.Name)
	log.Info("replay session started", "session", r.Status().Session)

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := startMetricsServer(addr)
		if err != nil {
			return fmt.Errorf("unable to start metrics server - %w", err)
		}
		log.Info("metrics server started", "url", url)
		defer closeFunc()
	}
	if addr := ctx.String(adminAddrFlag.Name); addr != "" {
		url, closeFunc, err := admin.StartServer(addr, logLevel, r.Status)
		if err != nil {
			return fmt.Errorf("unable to start admin server - %w", err)
		}
		log.Info("admin server started", "url", url)
		defer closeFunc()
	}

	exitSignal := handleExitSignal()

	h, err := r.init(cfg)
	if err != nil {
		return err
	}
	progress := !r.receipts && isTerminal(os.Stdout)
	if h, err = r.run(exitSignal, h, scenario, progress); err != nil {
		return err
	}
	if err := r.summary(h); err != nil {
		return err
	}

	if ctx.Bool(waitFlag.Name) {
		<-exitSignal.Done()
	}
	return nil
}

func subAccountAction(ctx *cli.Context) error {
	var worker enclave.WorkerPubkey
	if err := worker.UnmarshalText([]byte(ctx.String(workerFlag.Name))); err != nil {
		return errors.Wrap(err, "-worker")
	}
	fmt.Println(stakepool.SubAccount(ctx.Uint64(pidFlag.Name), worker))
	return nil
}

func powTargetAction(ctx *cli.Context) error {
	target := mining.PowTarget(
		uint32(ctx.Uint64(txFlag.Name)),
		uint32(ctx.Uint64(workersFlag.Name)),
		uint32(ctx.Uint64(blockSecsFlag.Name)),
	)
	fmt.Println(target.Hex())
	return nil
}

func devGenesisAction(*cli.Context) error {
	data, err := yaml.Marshal(genesis.NewDevConfig())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
