package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sentra-systems/sentra/internal/analyzer"
	"github.com/sentra-systems/sentra/internal/config"
	"github.com/sentra-systems/sentra/internal/logging"
	"github.com/sentra-systems/sentra/internal/messaging"
	"github.com/sentra-systems/sentra/internal/models"
	"github.com/sentra-systems/sentra/internal/normalizer"
)

var serveCapture string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live pipeline",
	Long: `Runs the full pipeline as a long-lived service: events arrive on
the message bus intake subject (and optionally from a capture file fed
through the traffic analyzer), and the /metrics and /healthz endpoints
are served until SIGINT or SIGTERM. SIGHUP reloads decision thresholds
from the config file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveCapture, "capture", "", "capture export to analyze at startup (tshark csv/jsonl)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.bus != nil {
		sub, err := rt.bus.QueueSubscribe(messaging.SubjectEventsRaw, messaging.QueuePipelineWorkers, func(ctx context.Context, msg *messaging.Message) error {
			var fields map[string]string
			if err := json.Unmarshal(msg.Data, &fields); err != nil {
				return fmt.Errorf("decode intake event: %w", err)
			}
			_, err := rt.pipeline.ProcessRecord(ctx, normalizer.Record{
				Source: normalizer.SourceLive,
				Fields: fields,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("subscribe intake: %w", err)
		}
		defer sub.Unsubscribe()
		log.Info("intake subscribed", "subject", messaging.SubjectEventsRaw)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reloaded, err := config.Load(cfgFile)
				if err != nil {
					log.Error("config reload failed", logging.Error(err))
					continue
				}
				if err := rt.thresholds.Update(reloaded.Thresholds); err != nil {
					log.Error("threshold reload rejected", logging.Error(err))
					continue
				}
				log.Info("thresholds reloaded",
					"alert", reloaded.Thresholds.AlertThreshold,
					"block", reloaded.Thresholds.BlockThreshold,
					"auto_block", reloaded.Thresholds.AutoBlock,
				)
			}
		}
	}()

	if serveCapture != "" {
		go func() {
			summary, err := analyzeCapture(ctx, rt, serveCapture)
			if err != nil {
				log.Error("capture analysis failed", logging.Error(err))
				return
			}
			log.Info("capture analysis finished",
				"packets", summary.Packets,
				"skipped", summary.Skipped,
				"findings", summary.Findings,
			)
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("sentra listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logging.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", logging.Error(err))
	}

	summary := rt.pipeline.Snapshot()
	log.Info("pipeline summary",
		"processed", summary.Processed,
		"blocked", summary.Blocked,
		"restricted", summary.Restricted,
		"dispatched", summary.Dispatched,
		"suppressed", summary.Suppressed,
	)
	return nil
}

// analyzeCapture feeds a saved capture through the analyzer into the
// pipeline.
func analyzeCapture(ctx context.Context, rt *runtime, path string) (analyzer.Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return analyzer.Summary{}, err
	}
	defer file.Close()

	source, err := openPacketSource(file, path)
	if err != nil {
		return analyzer.Summary{}, err
	}

	a := analyzer.New(analyzer.Config{
		Workers:          cfg.Analyzer.Workers,
		FlowIdleTimeout:  cfg.Analyzer.FlowIdleTimeout,
		MaxFlowsPerShard: cfg.Analyzer.MaxFlowsPerShard,
		PortScanPorts:    cfg.Analyzer.PortScanPorts,
		PacketRateLimit:  cfg.Analyzer.PacketRateLimit,
		SynRateLimit:     cfg.Analyzer.SynRateLimit,
	}, normalizer.Default(), func(event models.SecurityEvent) {
		if _, err := rt.pipeline.ProcessEvent(ctx, event); err != nil {
			log.Warn("finding dropped", logging.Error(err))
		}
	}, log)

	return a.Run(ctx, source)
}
