// Command httpcore-fetch is a tiny CLI that drives the httpcore library
// end-to-end: one request, streamed to stdout, through the same pooled
// retry-aware engine an embedding application would use. It is the
// module's only "server-shaped" file, and it is a client, not a
// listener — adapted from the teacher's main.go startup sequence
// (styled logger init, signal-based graceful cancellation) with the
// proxy-serving body replaced by a single Client.Do call.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	units "github.com/docker/go-units"

	"github.com/relaycore/httpcore"
	"github.com/relaycore/httpcore/internal/config"
	"github.com/relaycore/httpcore/internal/logger"
	"github.com/relaycore/httpcore/internal/version"
	"github.com/relaycore/httpcore/pkg/profiler"
)

func main() {
	var (
		method     = flag.String("method", "GET", "HTTP method")
		header     = multiFlag{}
		connect    = flag.Duration("connect-timeout", 10*time.Second, "connect timeout")
		read       = flag.Duration("read-timeout", 30*time.Second, "read timeout")
		noDecode   = flag.Bool("no-decode", false, "do not decode Content-Encoding")
		noRedirect = flag.Bool("no-redirect", false, "do not follow redirects")
		showVer    = flag.Bool("version", false, "print version and exit")
		debugPprof = flag.Bool("debug-profile", false, "serve pprof on localhost:19841")
	)
	flag.Var(&header, "H", "extra request header (repeatable), e.g. -H 'Accept: application/json'")
	flag.Parse()

	vlog := log.New(log.Writer(), "", 0)
	if *showVer {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	if *debugPprof {
		profiler.InitialiseProfiler()
	}

	rawURL := flag.Arg(0)
	if rawURL == "" {
		fmt.Fprintln(os.Stderr, "usage: httpcore-fetch [flags] <url>")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	logInstance, styled, cleanup, err := logger.NewWithTheme(&logger.Config{
		Level:      cfg.Logging.Level,
		Theme:      cfg.Logging.Theme,
		PrettyLogs: cfg.Logging.PrettyLogs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	cfg.Timeout.Connect = *connect
	cfg.Timeout.Read = *read
	cfg.Request.DecodeContent = !*noDecode
	cfg.Request.Redirect = !*noRedirect

	client, err := httpcore.New(cfg)
	if err != nil {
		logger.FatalWithLogger(logInstance, "failed to build client", "error", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		styled.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	url, err := httpcore.ParseURL(rawURL)
	if err != nil {
		logger.FatalWithLogger(logInstance, "invalid url", "url", rawURL, "error", err)
	}

	req := client.NewRequest(*method, url)
	for _, kv := range header {
		name, value, ok := strings.Cut(kv, ":")
		if !ok {
			logger.FatalWithLogger(logInstance, "invalid -H value", "value", kv)
		}
		req.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	start := time.Now()
	resp, err := client.Do(ctx, req)
	if err != nil {
		logger.FatalWithLogger(logInstance, "request failed", "url", rawURL, "error", err)
	}
	defer resp.Close()

	styled.InfoWithOrigin("response received", rawURL, "status", resp.Status, "elapsed", time.Since(start))

	body, err := resp.ReadAll()
	if err != nil {
		logger.FatalWithLogger(logInstance, "failed reading body", "error", err)
	}
	os.Stdout.Write(body)

	styled.Info("done", "bytes", units.BytesSize(float64(len(body))))
}

// multiFlag collects repeated -H flag occurrences.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
