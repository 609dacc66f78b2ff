// Command triagex-worker runs the broker drain loop standalone, without
// the HTTP ingestion surface, so draining can scale independently of
// ticket intake. It keeps its own priority-queue snapshot; operators
// running this alongside triagex-server should point it at a distinct
// TRIAGEX_SNAPSHOT_PATH.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/alerting"
	"github.com/jordigilh/triagex/pkg/broker"
	"github.com/jordigilh/triagex/pkg/dedup"
	"github.com/jordigilh/triagex/pkg/embedding"
	"github.com/jordigilh/triagex/pkg/metrics"
	"github.com/jordigilh/triagex/pkg/queue"
	"github.com/jordigilh/triagex/pkg/shared/logging"
)

func main() {
	cfg := config.Load()

	log, err := logging.NewLogger(os.Getenv("TRIAGEX_DEBUG") != "")
	if err != nil {
		panic(err)
	}

	redisAddr := cfg.BrokerHost + ":" + strconv.Itoa(cfg.BrokerPort)
	brokerClient := broker.New(redisAddr, cfg.QueueKey)
	defer brokerClient.Close()

	if err := queue.EnsureDir(cfg.SnapshotPath); err != nil {
		log.Error(err, "failed to create queue snapshot directory")
	}
	ticketQueue := queue.New(cfg.SnapshotPath, log)

	detector := dedup.New(embedding.NewShingleVectorizer(), cfg.StormSimilarity, cfg.StormWindow, cfg.StormThreshold)
	notifier := alerting.New(cfg.WebhookURL, cfg.WebhookAuth, cfg.WebhookThreshold, log)
	m := metrics.New()

	drainWorker := broker.NewWorker(brokerClient, ticketQueue, detector, notifier, m, log)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("triagex-worker metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "metrics server exited")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("triagex-worker draining", "broker_addr", redisAddr, "queue_key", cfg.QueueKey)
	drainWorker.Run(ctx)
	log.Info("triagex-worker shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "metrics server graceful shutdown failed")
	}
}
