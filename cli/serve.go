package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go.hackfix.me/dirserve/app/config"
	actx "go.hackfix.me/dirserve/app/context"
	"go.hackfix.me/dirserve/crypto"
	"go.hackfix.me/dirserve/metrics"
	"go.hackfix.me/dirserve/web/listing"
	"go.hackfix.me/dirserve/web/server"
	"go.hackfix.me/dirserve/web/server/handler"
	"go.hackfix.me/dirserve/web/server/middleware"
	"go.hackfix.me/dirserve/xtime"
)

// Serve starts the web server.
type Serve struct {
	Port uint16 `short:"p" help:"Port to listen on. Default: 8080."`
	Bind string `help:"Host or IP address to listen on. Default: all interfaces."`
	Root string `help:"Directory to serve. Default: the current working directory."`
	//nolint:lll // Long struct tags are unavoidable.
	SSL             []string        `name:"ssl" sep:"," placeholder:"CERT,KEY[,PASSPHRASE]" help:"Enable TLS with the given PEM certificate and private key files. The key may be encrypted with PASSPHRASE. CERT may also be a PKCS#12 bundle (.p12 or .pfx), in which case KEY is ignored. Plain HTTP is still accepted on the same port."`
	BufferLimit     config.ByteSize `help:"Largest text file read into memory before responding. Larger files are streamed. Default: ${defaultBufferLimit}."`
	MetricsAddress  string          `help:"[host]:port to serve Prometheus metrics on, at /metrics. Disabled by default."`
	ShutdownTimeout xtime.Duration  `help:"Time in-flight requests have to complete when the server stops. Default: 10s."`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	logger := appCtx.Logger.With("component", "web-server")

	root, err := openRoot(appCtx, c.Root)
	if err != nil {
		return err
	}

	renderer, err := listing.New(listing.WithFooter("dirserve " + appCtx.Version.Semantic))
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	var (
		opts []handler.Option
		rec  middleware.RequestRecorder
		mtr  *metrics.Metrics
	)
	if c.MetricsAddress != "" {
		mtr = metrics.New()
		opts = append(opts, handler.WithObserver(mtr))
		rec = mtr
	}

	streamer := handler.NewStreamer(root, int64(c.BufferLimit), logger)
	h := handler.New(root, renderer, streamer, logger, opts...)

	tlsCert, err := c.loadTLSCert(appCtx)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(c.Bind, strconv.Itoa(int(c.Port)))
	srv, err := server.New(addr, server.SetupHandlers(h, logger, rec), tlsCert, logger)
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}
	servers := []*server.Server{srv}

	if mtr != nil {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", mtr.Handler())
		mlogger := appCtx.Logger.With("component", "metrics-server")
		msrv, err := server.New(c.MetricsAddress, mux, nil, mlogger)
		if err != nil {
			return err //nolint:wrapcheck // Already descriptive.
		}
		servers = append(servers, msrv)
	}

	logger.Info("serving directory", "root", root.Dir(), "buffer_limit", c.BufferLimit.String())

	return c.run(appCtx, servers)
}

// run starts all servers, and stops them gracefully if a process signal is
// received, the main context is done, or any of them fails.
// See https://dev.to/mokiat/proper-http-shutdown-in-go-3fji
func (c *Serve) run(appCtx *actx.Context, servers []*server.Server) error {
	ctx, stop := signal.NotifyContext(appCtx.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			err := srv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("web server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appCtx.Logger.Debug("shutting down", "reason", context.Cause(gctx))

		timeout := time.Duration(c.ShutdownTimeout)
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			err := srv.Shutdown(sctx)
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				errs = append(errs, fmt.Errorf("failed shutting down web server: %w", err))
			}
		}

		return errors.Join(errs...)
	})

	//nolint:wrapcheck // Errors are wrapped above.
	return g.Wait()
}

// loadTLSCert loads the certificate given with --ssl. If loading fails, a
// warning is logged and the server runs without TLS.
func (c *Serve) loadTLSCert(appCtx *actx.Context) (*tls.Certificate, error) {
	if len(c.SSL) == 0 {
		return nil, nil //nolint:nilnil // TLS is disabled.
	}
	if len(c.SSL) > 3 || c.SSL[0] == "" {
		return nil, errors.New("--ssl must be in the format CERT,KEY[,PASSPHRASE]")
	}

	var keyPath, passphrase string
	certPath := absPath(appCtx, c.SSL[0])
	if len(c.SSL) > 1 && c.SSL[1] != "" {
		keyPath = absPath(appCtx, c.SSL[1])
	}
	if len(c.SSL) > 2 {
		passphrase = c.SSL[2]
	}

	cert, err := crypto.LoadTLSCert(appCtx.FS, certPath, keyPath, passphrase)
	if err != nil {
		appCtx.Logger.Warn("failed loading TLS certificate, serving plain HTTP only",
			"cert", certPath, "key", keyPath, "error", err.Error())
		return nil, nil //nolint:nilnil // TLS is disabled.
	}

	attrs := []any{"cert", certPath}
	if cert.Leaf != nil {
		attrs = append(attrs, "subject", cert.Leaf.Subject.CommonName,
			"expires", cert.Leaf.NotAfter.Format(time.RFC3339))
		if appCtx.TimeNow().After(cert.Leaf.NotAfter) {
			appCtx.Logger.Warn("TLS certificate has expired", attrs...)
		}
	}
	appCtx.Logger.Debug("loaded TLS certificate", attrs...)

	return &cert, nil
}
