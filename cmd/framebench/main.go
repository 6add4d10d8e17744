// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command framebench streams synthetic detector frames through one or
// more correction pipelines sharing a slot table, and reports throughput.
//
// It is configured through FRAMEBENCH_* environment variables; see Config.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.hybscloud.com/framepipe"
	"code.hybscloud.com/framepipe/accel"
	"code.hybscloud.com/framepipe/calib"
	"code.hybscloud.com/iox"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "framebench:", err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "framebench:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("benchmark failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	metrics, err := framepipe.NewMetrics(reg)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer srv.Shutdown(context.Background())
	}

	popts := []accel.PlatformOption{accel.WithLogger(logger)}
	if cfg.DeviceMemory > 0 {
		popts = append(popts, accel.WithDeviceMemory(cfg.DeviceMemory))
	}
	platform, err := accel.NewPlatform(cfg.Devices, popts...)
	if err != nil {
		return errors.Wrap(err, "platform")
	}
	table, err := framepipe.NewTable(platform, framepipe.TableConfig{
		Slots:     cfg.Slots,
		MaxFrames: cfg.MaxFrames,
		Pixels:    cfg.Pixels,
	}, framepipe.WithLogger(logger))
	if err != nil {
		return err
	}
	defer table.Close()

	pipelines := make([]*framepipe.Pipeline, 0, cfg.Pipelines)
	defer func() {
		for _, p := range pipelines {
			shutdown(p, logger)
		}
	}()
	for i := range cfg.Pipelines {
		p, err := framepipe.New(table, syntheticMap(cfg.Pixels, i), cfg.Slots/cfg.Pipelines,
			framepipe.WithLogger(logger), framepipe.WithMetrics(metrics))
		if err != nil {
			return err
		}
		pipelines = append(pipelines, p)
	}

	var memory int64
	for d := range platform.DeviceCount() {
		dev, _ := platform.Device(d)
		memory += dev.MemoryUsed()
	}
	logger.Info("benchmark starting",
		zap.Int("devices", cfg.Devices),
		zap.Int("pipelines", cfg.Pipelines),
		zap.Int("frames", cfg.Frames),
		zap.String("device_memory", humanize.IBytes(uint64(memory))),
		zap.String("pinned_memory", humanize.IBytes(uint64(platform.PinnedUsed()))))

	bar := newBar(cfg)
	frames := make([]uint64, len(pipelines))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pipelines {
		submitted := make(chan uint64, 1)
		batch := syntheticFrames(cfg.MaxFrames, cfg.Pixels, uint64(i))
		g.Go(func() error {
			n, err := produce(gctx, p, batch, cfg.Frames, cfg.MaxFrames)
			submitted <- n
			return err
		})
		g.Go(func() error {
			n, err := consume(gctx, p, submitted, bar)
			frames[i] = n
			return err
		})
	}
	err = g.Wait()
	elapsed := time.Since(start)
	bar.Finish()
	if err != nil {
		return err
	}

	report(cfg, pipelines, frames, elapsed, logger)
	return nil
}

// produce ingests frames frames, at most maxFrames per call, retrying on
// backpressure. It returns the number of batches submitted.
func produce(ctx context.Context, p *framepipe.Pipeline, batch []uint16, frames, maxFrames int) (uint64, error) {
	px := len(batch) / maxFrames
	var batches uint64
	backoff := iox.Backoff{}
	for remaining := frames; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return batches, err
		}
		n := min(remaining, maxFrames)
		got, err := p.Ingest(batch[:n*px])
		if err != nil {
			return batches, err
		}
		if got == 0 {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		remaining -= got
		batches++
	}
	return batches, nil
}

// consume retrieves results until it has seen as many batches as the
// producer reports on submitted. It returns the number of frames retrieved.
func consume(ctx context.Context, p *framepipe.Pipeline, submitted <-chan uint64, bar *progressbar.ProgressBar) (uint64, error) {
	var (
		r       framepipe.Result
		batches uint64
		frames  uint64
	)
	target := ^uint64(0)
	backoff := iox.Backoff{}
	for batches < target {
		if p.Retrieve(&r) {
			batches++
			frames += uint64(r.Frames)
			bar.Add(r.Frames)
			backoff.Reset()
			continue
		}
		select {
		case n := <-submitted:
			target, submitted = n, nil
		case <-ctx.Done():
			return frames, ctx.Err()
		default:
			backoff.Wait()
		}
	}
	return frames, nil
}

// shutdown waits for outstanding work, discards unretrieved results and
// closes p.
func shutdown(p *framepipe.Pipeline, logger *zap.Logger) {
	p.Synchronize()
	var r framepipe.Result
	for p.Retrieve(&r) {
	}
	if err := p.Close(); err != nil {
		logger.Warn("pipeline close", zap.Stringer("pipeline", p.ID()), zap.Error(err))
	}
}

func report(cfg *Config, pipelines []*framepipe.Pipeline, frames []uint64, elapsed time.Duration, logger *zap.Logger) {
	var total uint64
	for i, p := range pipelines {
		st := p.Stats()
		total += frames[i]
		logger.Info("pipeline done",
			zap.Stringer("pipeline", st.ID),
			zap.Uint64("frames", frames[i]),
			zap.Uint64("batches", st.Batches),
			zap.Uint64("backpressure", st.Backpressure))
	}
	secs := elapsed.Seconds()
	bytes := total * uint64(cfg.Pixels) * 2
	fmt.Printf("%s frames (%s) in %s: %s, %s/s\n",
		humanize.Comma(int64(total)),
		humanize.Bytes(bytes),
		elapsed.Round(time.Millisecond),
		humanize.SIWithDigits(float64(total)/secs, 2, "frames/s"),
		humanize.Bytes(uint64(float64(bytes)/secs)))
}

func newBar(cfg *Config) *progressbar.ProgressBar {
	total := int64(cfg.Frames) * int64(cfg.Pipelines)
	if !cfg.Progress {
		return progressbar.DefaultSilent(total)
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("correcting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// syntheticMap returns a map whose gain differs per pipeline.
func syntheticMap(pixels, index int) *calib.Map {
	scale := float64(index + 1)
	return calib.Uniform(pixels,
		[calib.Stages]float64{scale, 10 * scale, 100 * scale},
		[calib.Stages]float64{1000, 500, 200})
}

// syntheticFrames returns maxFrames frames of mostly low-gain pixels with
// an occasional switch to the medium and high gain stages.
func syntheticFrames(maxFrames, pixels int, seed uint64) []uint16 {
	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	out := make([]uint16, maxFrames*pixels)
	for i := range out {
		stage := 0
		switch x := rng.IntN(1000); {
		case x < 5:
			stage = 2
		case x < 50:
			stage = 1
		}
		out[i] = calib.Encode(stage, uint16(900+rng.IntN(200)))
	}
	return out
}
