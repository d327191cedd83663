// Copyright 2024 The go-equa Authors

// Command permia-miner is the operator-facing proof-of-work miner daemon:
// it mines blocks on top of a locally-supplied parent header in a loop,
// printing each sealed header with its hashrate to stdout. It does not
// submit sealed headers to an EngineSubmitter or any other destination.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/permia/go-permia/common"
	"github.com/permia/go-permia/consensus/permia"
	"github.com/permia/go-permia/core/types"
	"github.com/permia/go-permia/log"
	"github.com/permia/go-permia/params"
)

func main() {
	maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	app := &cli.App{
		Name:  "permia-miner",
		Usage: "stand-alone PermiaHash miner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Value: "devnet", Usage: "mainnet, testnet, or devnet"},
			&cli.Uint64Flag{Name: "difficulty", Value: 0, Usage: "starting difficulty and difficulty floor (0 = network minimum)"},
			&cli.IntFlag{Name: "threads", Value: 0, Usage: "mining threads (0 = auto)"},
			&cli.StringFlag{Name: "beneficiary", Value: "0x0000000000000000000000000000000000000001", Usage: "address credited with mined blocks"},
			&cli.Uint64Flag{Name: "blocks", Value: 0, Usage: "stop after mining this many blocks (0 = unbounded)"},
			&cli.DurationFlag{Name: "block-budget", Value: 0, Usage: "per-block time budget (0 = unbounded)"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("permia-miner exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	glogger := log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, true))
	glogger.Verbosity(log.LvlInfo)
	log.SetDefault(log.NewLogger(glogger))

	cfg, ok := networkConfig(c.String("network"))
	if !ok {
		return fmt.Errorf("unknown network %q", c.String("network"))
	}

	beneficiary, err := common.HexToAddress(c.String("beneficiary"))
	if err != nil {
		return fmt.Errorf("invalid beneficiary: %w", err)
	}

	minDifficulty := cfg.MinDifficulty
	if d := c.Uint64("difficulty"); d != 0 {
		minDifficulty = d
	}

	diffCalc := permia.NewDifficultyCalculator(cfg.TargetInterval.Milliseconds(), minDifficulty)
	miner := permia.NewMiner(permia.MinerConfig{
		Threads:     c.Int("threads"),
		BatchSize:   permia.DefaultBatchSize,
		MaxDuration: c.Duration("block-budget"),
	}, cfg.EpochLength, nil)

	ctrl := permia.NewController(miner, permia.DifficultyConfig{
		Diff:        diffCalc,
		EpochLength: cfg.EpochLength,
		GasLimit:    cfg.MaxGasLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	color.Cyan("permia-miner starting: network=%s beneficiary=%s", c.String("network"), beneficiary)

	parent := &types.Header{
		Difficulty: uint256.NewInt(minDifficulty),
		Number:     0,
		Timestamp:  uint64(time.Now().UnixMilli()),
		GasLimit:   cfg.MaxGasLimit,
	}
	parentHash := common.Hash{}

	maxBlocks := c.Uint64("blocks")
	var mined uint64

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
			ctrl.Cancel()
			return nil
		default:
		}

		_, err := ctrl.StartMining(ctx, permia.TemplateInput{
			ParentHash:  parentHash,
			Parent:      parent,
			Beneficiary: beneficiary,
		}, true)
		if err != nil {
			return fmt.Errorf("start mining: %w", err)
		}

		select {
		case sealed := <-ctrl.Sealed():
			printMinedBlock(sealed)
			ctrl.AcknowledgeSealed()
			parent = sealed.Header
			parentHash = sealed.Header.SealHash()
			mined++
			if maxBlocks != 0 && mined >= maxBlocks {
				return nil
			}
		case <-ctx.Done():
			ctrl.Cancel()
			return nil
		}
	}
}

func printMinedBlock(sealed permia.SealedBlock) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"block", fmt.Sprintf("%d", sealed.Header.Number)})
	table.Append([]string{"nonce", fmt.Sprintf("%d", sealed.Header.Nonce.Uint64())})
	table.Append([]string{"difficulty", sealed.Header.Difficulty.String()})
	table.Append([]string{"hashrate", fmt.Sprintf("%.2f H/s", sealed.Stats.Hashrate())})
	table.Append([]string{"duration", sealed.Stats.Duration.String()})
	table.Render()
}

func networkConfig(name string) (params.PermiaConfig, bool) {
	switch name {
	case "mainnet":
		return params.MainnetConfig(), true
	case "testnet":
		return params.TestnetConfig(), true
	case "devnet":
		return params.DevnetConfig(), true
	default:
		return params.PermiaConfig{}, false
	}
}
