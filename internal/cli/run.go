package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"github.com/aretw0/formbot"
	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/internal/presentation/tui"
	"github.com/aretw0/formbot/pkg/adapters/console"
	httpadapter "github.com/aretw0/formbot/pkg/adapters/http"
	"github.com/aretw0/formbot/pkg/adapters/telegram"
	"github.com/aretw0/formbot/pkg/runner"
)

// RunTelegram long-polls Telegram until ctx is done, exposing /metrics on METRICS_ADDR.
func RunTelegram(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	stack, err := OpenStack(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	reg, metrics := NewMetrics()
	engine, err := NewEngine(cfg, stack, logger, metrics.Hooks())
	if err != nil {
		return err
	}
	r := NewRunner(cfg, engine, logger, metrics)
	defer drain(r, logger)

	bot, err := telegram.New(cfg.TelegramToken, r, telegram.WithLogger(logger), telegram.WithMetrics(metrics))
	if err != nil {
		return err
	}

	return withMetricsServer(ctx, cfg.MetricsAddr, reg, logger, bot.Run)
}

// withMetricsServer runs fn alongside a /metrics listener on addr. The listener
// is shut down as soon as fn returns, and a listener failure cancels fn.
// An empty addr runs fn alone.
func withMetricsServer(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger, fn func(context.Context) error) error {
	if addr == "" {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsErr := make(chan error, 1)
	go func() {
		err := serveHTTP(runCtx, metricsServer(addr, reg), logger)
		if err != nil {
			logger.Error("metrics server failed", "err", err)
			cancel()
		}
		metricsErr <- err
	}()

	err := fn(runCtx)
	cancel()
	if mErr := <-metricsErr; err == nil {
		err = mErr
	}
	return err
}

// RunServe exposes the engine over HTTP on HTTP_ADDR.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stack, err := OpenStack(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	reg, metrics := NewMetrics()
	streams := httpadapter.NewStreamManager(logger)
	engine, err := NewEngine(cfg, stack, logger, metrics.Hooks(), streams.Hooks())
	if err != nil {
		return err
	}
	r := NewRunner(cfg, engine, logger, metrics)
	defer drain(r, logger)

	handler := httpadapter.NewHandler(r, engine,
		httpadapter.WithLogger(logger),
		httpadapter.WithStreams(streams),
		httpadapter.WithGatherer(reg),
		httpadapter.WithVersion(formbot.Version),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serveHTTP(ctx, srv, logger)
}

// ConsoleOptions configures a local session.
type ConsoleOptions struct {
	ParticipantID string
	In            io.Reader
	Out           io.Writer
}

// RunConsole plays the dialogue on a terminal. Lines starting with ! press a
// button and @ sends a photo.
func RunConsole(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ConsoleOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ParticipantID == "" {
		opts.ParticipantID = "console"
	}

	stack, err := OpenStack(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	engine, err := NewEngine(cfg, stack, logger)
	if err != nil {
		return err
	}
	r := NewRunner(cfg, engine, logger, nil)
	defer drain(r, logger)

	interactive := isTerminal(opts.In) && isTerminal(opts.Out)
	renderer := tui.NewPlainRenderer(opts.Out)
	if interactive {
		tui.PrintBanner(opts.Out, formbot.Version)
		printSystemMessage(opts.Out, "Send /fillform to start, /cancel to stop. !token presses a button, @file_id sends a photo.")
		renderer = tui.NewRenderer(opts.Out)
	}

	c := &console.Console{
		In:            opts.In,
		Out:           opts.Out,
		ParticipantID: opts.ParticipantID,
		Renderer:      renderer,
		Interactive:   interactive,
	}
	return c.Run(ctx, r)
}

func metricsServer(addr string, reg *prometheus.Registry) *http.Server {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
}

func drain(r *runner.Runner, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		logger.Warn("runner did not drain", "err", err)
	}
}

func closeStack(stack *Stack, logger *slog.Logger) {
	if err := stack.Close(); err != nil {
		logger.Warn("close stores", "err", err)
	}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
