// Package main — cmd/mdmengine/main.go
//
// Engine entrypoint: reads newline-delimited JSON events from stdin (or a
// file), runs each through the full pipeline, and writes one
// newline-delimited JSON decision packet per event to stdout.
//
// Startup sequence:
//  1. Parse flags (config path, profile, input path).
//  2. Load and validate config.
//  3. Initialise structured logger (zap).
//  4. Open BoltDB storage.
//  5. Prune stale packets.
//  6. Start Prometheus metrics server (127.0.0.1:9091).
//  7. Start the review socket server (if enabled).
//  8. Register SIGHUP handler that re-reads and validates the config
//     (the running pipeline keeps its startup config).
//  9. Process events until EOF or SIGINT/SIGTERM.
//
// Shutdown sequence: cancel root context, flush trace sink, close
// storage, flush logger, exit 0.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aegiskernel/mdm/internal/budget"
	"github.com/aegiskernel/mdm/internal/config"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/observability"
	"github.com/aegiskernel/mdm/internal/packet"
	"github.com/aegiskernel/mdm/internal/pipeline"
	"github.com/aegiskernel/mdm/internal/review"
	"github.com/aegiskernel/mdm/internal/storage"
	"github.com/aegiskernel/mdm/internal/trace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		profile    string
		inputPath  string
		tracePath  string
	)

	cmd := &cobra.Command{
		Use:     "mdmengine",
		Short:   "Run the moral decision pipeline over a stream of events",
		Version: fmt.Sprintf("%s (commit=%s built=%s)", config.Version, config.GitCommit, config.BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, profile, inputPath, tracePath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (optional; profile defaults are used if empty)")
	cmd.Flags().StringVar(&profile, "profile", "base", "named configuration profile")
	cmd.Flags().StringVar(&inputPath, "input", "-", "path to a newline-delimited JSON event file, or - for stdin")
	cmd.Flags().StringVar(&tracePath, "trace", "", "path to an append-only JSONL trace file (optional)")

	return cmd
}

func run(configPath, profile, inputPath, tracePath string) error {
	cfg, err := config.Load(configPath, profile)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("mdmengine starting",
		zap.String("version", config.Version),
		zap.String("profile", cfg.Profile),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.RetentionDays)
	if err != nil {
		return fmt.Errorf("storage open failed: %w", err)
	}
	defer db.Close() //nolint:errcheck

	pruned, err := db.PruneOldPackets()
	if err != nil {
		log.Warn("packet pruning failed", zap.Error(err))
	} else {
		log.Info("packets pruned", zap.Int("deleted", pruned))
	}

	metrics := observability.NewMetrics()
	go func() {
		if err := metrics.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	reviewQueue := review.NewMemQueue()
	if cfg.Review.Enabled {
		srv := review.NewServer(cfg.Review.SocketPath, reviewQueue, log)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error("review server error", zap.Error(err))
			}
		}()
		log.Info("review server started", zap.String("socket", cfg.Review.SocketPath))
	}

	var sink *trace.Sink
	if tracePath != "" {
		sink, err = trace.Open(tracePath, 20)
		if err != nil {
			return fmt.Errorf("trace sink open failed: %w", err)
		}
		defer sink.Close() //nolint:errcheck
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			log.Info("SIGHUP received, reloading config")
			if _, err := config.Load(configPath, profile); err != nil {
				log.Error("config reload failed validation", zap.Error(err))
				continue
			}
			log.Info("config re-read and valid; the running pipeline keeps its startup config")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	pl := pipeline.New(cfg, nil, log)
	pipelineCtx := &mdmtypes.Context{}
	limiter := budget.NewBucket(cfg.Budget.Capacity, cfg.Budget.Rate, cfg.Budget.StartFull)

	var in io.Reader = os.Stdin
	if inputPath != "-" && inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input %q: %w", inputPath, err)
		}
		defer f.Close()
		in = f
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			log.Info("mdmengine shutdown complete")
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNum++

		ev, entityID, source, external, err := parseEventLine(line, lineNum)
		if err != nil {
			log.Warn("skipping malformed event", zap.Error(err))
			continue
		}

		if !limiter.Allow() {
			metrics.BudgetRejectedTotal.Inc()
			log.Warn("event dropped by rate limiter")
			continue
		}
		metrics.BudgetTokensRemaining.Set(limiter.Remaining())

		result, err := pl.Decide(ev, pipelineCtx)
		if err != nil {
			log.Error("pipeline decide failed", zap.Error(err))
			continue
		}

		decisionID := uuid.NewString()
		pkt := packet.Build(result, cfg.Profile, packet.Envelope{
			RunID:    decisionID,
			Ts:       float64(time.Now().UTC().UnixNano()) / 1e9,
			Source:   source,
			EntityID: entityID,
			External: external,
			Input:    ev,
			Review:   map[string]any{},
		})

		metrics.DecisionsTotal.WithLabelValues(fmt.Sprintf("%d", pkt.MDM.Level)).Inc()
		metrics.CUSHistogram.Observe(pkt.MDM.Uncertainty.CUS)
		metrics.ConfidenceHistogram.Observe(pkt.MDM.Confidence)
		metrics.EscalationDriverTotal.WithLabelValues(pkt.MDM.EscalationDriver).Inc()
		if pkt.MDM.FailSafeOverride {
			metrics.FailSafeTriggersTotal.WithLabelValues(pkt.MDM.FailSafeTrigger).Inc()
		}
		if pkt.MDM.SoftClamp {
			metrics.ClampAppliedTotal.Inc()
		}

		if violations := packet.HardViolations(packet.CheckInvariants(pkt)); len(violations) > 0 {
			for _, v := range violations {
				log.Error("packet invariant violated", zap.String("name", v.Name), zap.String("detail", v.Detail))
			}
			continue
		}

		if pkt.MDM.Level == 2 {
			reviewQueue.Enqueue(review.Entry{
				DecisionID:    decisionID,
				StateHash:     pkt.MDM.StateHash,
				PrimaryDriver: pkt.MDM.EscalationDriver,
			})
		}

		if err := db.AppendPacket(time.Now().UTC(), pkt.MDM.StateHash, pkt); err != nil {
			log.Error("packet persistence failed", zap.Error(err))
		}

		if sink != nil {
			if err := sink.Write(pkt); err != nil {
				log.Error("trace write failed", zap.Error(err))
			}
		}

		data, err := json.Marshal(pkt)
		if err != nil {
			log.Error("packet marshal failed", zap.Error(err))
			continue
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("stdout write failed: %w", err)
		}
		_ = out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	log.Info("mdmengine shutdown complete")
	return nil
}

// inputLine is the optional envelope shape an input line can carry around
// the bare numeric event: entity_id/source/external ride alongside input
// the same way they do on the packets the engine emits (spec.md §3), so a
// caller re-feeding a prior packet's input line round-trips cleanly.
type inputLine struct {
	EntityID string         `json:"entity_id"`
	Source   string         `json:"source"`
	External map[string]any `json:"external"`
	Input    mdmtypes.Event `json:"input"`
}

// parseEventLine decodes one newline-delimited input line, accepting
// either a bare event object or the inputLine envelope. Missing
// entity_id/source/external fall back to line-derived and static defaults.
func parseEventLine(line []byte, lineNum int) (ev mdmtypes.Event, entityID, source string, external map[string]any, err error) {
	var env inputLine
	if jsonErr := json.Unmarshal(line, &env); jsonErr == nil && len(env.Input) > 0 {
		ev = env.Input
		entityID, source, external = env.EntityID, env.Source, env.External
	} else {
		if unmarshalErr := json.Unmarshal(line, &ev); unmarshalErr != nil {
			return nil, "", "", nil, unmarshalErr
		}
	}

	if entityID == "" {
		entityID = fmt.Sprintf("entity-%d", lineNum)
	}
	if source == "" {
		source = "mdmengine"
	}
	if external == nil {
		external = map[string]any{}
	}
	return ev, entityID, source, external, nil
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
