// Package server runs the inbox daemon: a watched directory feeding the processing queue,
// with a gRPC health endpoint reporting whether the queue is accepting work.
package server

import (
	"context"
	"net"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/challan-processor/internal/async"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	coreasync "github.com/joseph-ayodele/challan-processor/internal/core/async"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/ingest"
)

// ServiceName is the health service name reported alongside the overall "" status.
const ServiceName = "challan.Processor"

// Config configures the daemon.
type Config struct {
	Addr            string
	InboxDir        string
	Debounce        time.Duration
	InitialScan     bool
	Workers         int
	QueueSize       int
	ProcessTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// ConfigFrom maps application config onto daemon config.
func ConfigFrom(c *common.Config) Config {
	return Config{
		Addr:            c.Server.GRPCAddr,
		InboxDir:        c.Server.InboxDir,
		Debounce:        c.Server.Debounce,
		InitialScan:     true,
		Workers:         c.Pipeline.Workers,
		QueueSize:       c.Pipeline.QueueSize,
		ProcessTimeout:  c.Pipeline.ProcessTimeout,
		ShutdownTimeout: 30 * time.Second,
	}
}

type Daemon struct {
	cfg    Config
	proc   coreasync.FileProcessor
	logger *zap.Logger

	health *health.Server
	grpc   *grpc.Server
	dedup  *ingest.Deduper
	queue  *coreasync.ProcessorQueue
}

func NewDaemon(cfg Config, proc coreasync.FileProcessor, logger *zap.Logger) *Daemon {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	d := &Daemon{
		cfg:    cfg,
		proc:   proc,
		logger: common.LoggerOrDefault(logger),
		health: health.NewServer(),
		grpc:   grpc.NewServer(),
		dedup:  ingest.NewDeduper(),
	}
	healthpb.RegisterHealthServer(d.grpc, d.health)
	reflection.Register(d.grpc)
	d.setServing(false)
	return d
}

func (d *Daemon) setServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	d.health.SetServingStatus("", st)
	d.health.SetServingStatus(ServiceName, st)
}

// Run serves until ctx is done, then drains the queue and stops the gRPC server.
func (d *Daemon) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", d.cfg.Addr)
	if err != nil {
		return eris.Wrapf(err, "listen %s", d.cfg.Addr)
	}
	return d.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (d *Daemon) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{d.cfg.InboxDir},
		InitialScan: d.cfg.InitialScan,
		Debounce:    d.cfg.Debounce,
	}, d.logger)
	if err != nil {
		_ = lis.Close()
		return err
	}

	d.queue = coreasync.NewProcessorQueue(d.proc, d.logger,
		coreasync.WithWorkers(d.cfg.Workers),
		coreasync.WithQueueSize(d.cfg.QueueSize),
		coreasync.WithProcessTimeout(d.cfg.ProcessTimeout),
		coreasync.WithOnDone(d.onDone),
	)

	serveErr := make(chan error, 1)
	go func() {
		d.logger.Info("grpc serving", zap.String("addr", lis.Addr().String()))
		serveErr <- d.grpc.Serve(lis)
	}()
	d.setServing(true)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-serveErr:
			runErr = eris.Wrap(err, "grpc serve")
			break loop
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			d.logger.Warn("inbox watcher error", zap.Error(err))
		case path, ok := <-events:
			if !ok {
				break loop
			}
			d.submit(ctx, path)
		}
	}

	d.logger.Info("shutting down")
	d.setServing(false)
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), d.cfg.ShutdownTimeout)
	defer done()
	d.queue.Shutdown(shutdownCtx)
	d.grpc.GracefulStop()
	return runErr
}

func (d *Daemon) submit(ctx context.Context, path string) {
	first, sum, err := d.dedup.First(path)
	if err != nil {
		d.logger.Warn("cannot read inbox file", zap.String("source_file", path), zap.Error(err))
		return
	}
	if !first {
		d.logger.Debug("skipping already queued content", zap.String("source_file", path))
		return
	}
	job := async.Job{Path: path, ContentHash: sum, SubmittedAt: time.Now()}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.dedup.Forget(sum)
		d.logger.Warn("enqueue failed", zap.String("source_file", path), zap.Error(err))
	}
}

// onDone lets a file that failed be retried when it is written again.
func (d *Daemon) onDone(job async.Job, _ *entity.ExtractionResult, err error) {
	if err != nil && job.ContentHash != "" {
		d.dedup.Forget(job.ContentHash)
	}
}

// Stats reports the queue's finished job counts.
func (d *Daemon) Stats() coreasync.Stats {
	if d.queue == nil {
		return coreasync.Stats{}
	}
	return d.queue.Stats()
}
