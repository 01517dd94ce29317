// Command ckbd wires the ingestion core's pipelines against a configured
// node: load config, build the logger and metrics, construct the shared
// pipeline context, and block until the process receives a shutdown signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/ruizhaoz1/ckb/internal/fakechain"
	"github.com/ruizhaoz1/ckb/pkg/chainsync"
	"github.com/ruizhaoz1/ckb/pkg/chainsync/verify"
	"github.com/ruizhaoz1/ckb/pkg/config"
	"github.com/ruizhaoz1/ckb/pkg/core/block"
	"github.com/ruizhaoz1/ckb/pkg/core/blockchainer"
)

func main() {
	app := cli.NewApp()
	app.Name = "ckbd"
	app.Usage = "run the block-propagation ingestion core"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config-path",
			Usage: "path to a YAML config file",
		},
	}
	app.Action = runNode

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String("config-path"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		cfg = loaded
	}

	log, err := cfg.Logger.Build()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("logger: %v", err), 1)
	}
	defer func() { _ = log.Sync() }()

	registry := prometheus.NewRegistry()
	metrics := chainsync.NewMetrics(registry)

	shared := chainsync.NewShared(cfg.Consensus, log, metrics)
	shared.Chain = newGenesisChain()
	shared.Verifier = verify.New(cfg.Consensus.MedianTimeBlockCount, cfg.Consensus.AllowedFutureBlockTimeMillis)
	shared.Sender = loggingSender{log: log}
	shared.Disc = loggingDisconnector{log: log}
	shared.Proc = loggingProcessor{log: log}

	// The pipelines below are this binary's whole wiring surface: a real
	// transport dispatches each inbound message to the matching Process
	// call. No transport is constructed here (spec.md §1 Out of scope).
	_ = chainsync.NewHeaderAcceptor(shared)
	_ = chainsync.NewHeadersPipeline(shared)
	_ = chainsync.NewCompactBlockPipeline(shared, noopReconstructor{}, noopShortIDSource{})
	_ = chainsync.NewBlockPipeline(shared)

	log.Info("ckbd ready",
		zap.Uint32("misbehavior_threshold", cfg.Consensus.MisbehaviorThreshold),
		zap.Int("max_inflight", cfg.Consensus.MaxInflight))

	waitForShutdown(log)
	return nil
}

// newGenesisChain builds the placeholder HeaderIndex this binary starts
// with. A real deployment injects its own durable HeaderIndex here; no
// on-disk chain store is owned by this core (spec.md §1/§6).
func newGenesisChain() *fakechain.FakeChain {
	chain := fakechain.New()
	chain.AddGenesis(&block.Header{Number: 0, CompactTarget: 0x20010000})
	chain.SetInitialBlockDownload(false)
	return chain
}

type loggingSender struct{ log *zap.Logger }

func (s loggingSender) Send(msg chainsync.OutboundMessage) error {
	s.log.Debug("outbound message", zap.String("type", msg.Type), zap.Uint64("peer", uint64(msg.Peer)))
	return nil
}

type loggingDisconnector struct{ log *zap.Logger }

func (d loggingDisconnector) Disconnect(peer blockchainer.PeerIndex, reason string) {
	d.log.Warn("disconnecting peer", zap.Uint64("peer", uint64(peer)), zap.String("reason", reason))
}

type loggingProcessor struct{ log *zap.Logger }

func (p loggingProcessor) ProcessBlock(b *block.Block) error {
	p.log.Info("processed block", zap.Uint64("number", b.Number()))
	return nil
}

type noopReconstructor struct{}

func (noopReconstructor) Reconstruct(cb *block.CompactBlock, source chainsync.ShortIDSource) chainsync.ReconstructResult {
	return chainsync.ReconstructResult{
		Outcome:             chainsync.ReconstructMissing,
		MissingTransactions: cb.ShortIDIndexes(),
	}
}

type noopShortIDSource struct{}

func (noopShortIDSource) LookupByShortID(id block.ShortID) ([]byte, bool) { return nil, false }

func waitForShutdown(log *zap.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", zap.String("signal", s.String()))
}
