// Command foodie is a terminal client for the foodie nutrition catalog. It
// restores the stored session, runs one command against the remote API and
// prints the result as JSON.
package main

import (
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"foodie/internal/config"
	"foodie/internal/core"
	"foodie/internal/infra/api"
	"foodie/internal/localstore"
)

var exitFunc = os.Exit

// errUsage marks invocation mistakes, which exit with status 2.
var errUsage = errors.New("usage")

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("foodie", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath, envFile, tracePath string
	fs.StringVar(&configPath, "config", "", "path to YAML config file")
	fs.StringVar(&envFile, "env", "", "path to .env file")
	fs.StringVar(&tracePath, "trace", "", "append JSON trace spans to file")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "foodie: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "foodie: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, tracePath, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "foodie: %v\n", err)
		return 1
	}
	defer a.close()

	a.catalog.Auth.Restore(ctx)
	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		_, _ = fmt.Fprintf(stderr, "foodie: %v\n", err)
		if errors.Is(err, errUsage) {
			_, _ = fmt.Fprintf(stderr, "usage: foodie %s %s\n", fs.Arg(0), cmd.args)
			return 2
		}
		return 1
	}
	return 0
}

func usage(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintln(w, "usage: foodie [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
	_, _ = fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		_, _ = fmt.Fprintf(w, "  %-16s %s\n", strings.TrimSpace(name+" "+c.args), c.help)
	}
}

// app holds everything a command needs.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	catalog *core.Catalog
	// metricsPath and metricsHandler expose the selected recorder.
	metricsPath    string
	metricsHandler http.Handler
	out            io.Writer
	closers        []io.Closer
}

func newApp(ctx context.Context, cfg config.Config, tracePath string, stdout, stderr io.Writer) (*app, error) {
	log := cfg.NewLogger()
	log.SetOutput(stderr)

	slot, err := localstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a := &app{cfg: cfg, log: log, out: stdout}
	if c, ok := slot.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	client, err := api.New(api.Config{
		URL:       cfg.API.URL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Logger:    log,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	metrics, err := a.metricsRecorder()
	if err != nil {
		a.close()
		return nil, err
	}

	opts := []core.Option{
		core.WithLogger(log),
		core.WithMetricsRecorder(metrics),
		core.WithSlotKey(cfg.Storage.Key),
	}
	if tracePath != "" {
		f, err := os.OpenFile(tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	a.catalog = core.NewCatalog(client, slot, opts...)
	return a, nil
}

// metricsRecorder builds the configured recorder and the handler that serves it.
func (a *app) metricsRecorder() (core.MetricsRecorder, error) {
	switch a.cfg.Metrics.Backend {
	case config.MetricsExpvar:
		a.metricsPath, a.metricsHandler = "/debug/vars", expvar.Handler()
		return core.NewExpvarMetricsRecorder(core.DefaultExpvarName), nil
	default:
		registry := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(registry)
		if err != nil {
			return nil, err
		}
		a.metricsPath = "/metrics"
		a.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		return rec, nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}
