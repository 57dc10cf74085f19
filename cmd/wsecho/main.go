// Command wsecho connects to a websocket echo endpoint, sends a serialized request and
// prints the decoded responses.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sonirico/wstask"
)

type wsRequest struct {
	Value uint32 `json:"value" yaml:"value" cbor:"value"`
}

type wsResponse struct {
	Value uint32 `json:"value" yaml:"value" cbor:"value"`
}

type options struct {
	url         string
	protocols   []string
	mode        string
	format      string
	backend     string
	value       uint32
	count       int
	maxQueue    int
	ping        time.Duration
	timeout     time.Duration
	metricsAddr string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "wsecho",
		Short:        "Send requests to a websocket echo server and print the responses",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", "wss://echo.websocket.events/", "websocket endpoint")
	f.StringSliceVar(&opts.protocols, "protocol", nil, "subprotocols to offer, in preference order")
	f.StringVar(&opts.mode, "mode", "any", "frame mode: any, text or binary")
	f.StringVar(&opts.format, "format", "json", "request format: json, yaml or cbor")
	f.StringVar(&opts.backend, "backend", string(wstask.BackendFasthttp), "websocket library: fasthttp or gorilla")
	f.Uint32Var(&opts.value, "value", 321, "value to send")
	f.IntVar(&opts.count, "count", 1, "number of requests to send")
	f.IntVar(&opts.maxQueue, "max-queue", 0, "cap on frames buffered before open, 0 for unbounded")
	f.DurationVar(&opts.ping, "ping", 0, "keep-alive ping interval, 0 to disable")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func formatByName(name string) (wstask.Format, error) {
	switch name {
	case "json":
		return wstask.JSON, nil
	case "yaml":
		return wstask.YAML, nil
	case "cbor":
		return wstask.CBOR, nil
	}
	return nil, errors.Errorf("unknown format %q", name)
}

func run(ctx context.Context, opts *options) error {
	mode, err := wstask.ParseFrameMode(opts.mode)
	if err != nil {
		return err
	}
	format, err := formatByName(opts.format)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	registry := prometheus.NewRegistry()
	metrics := wstask.NewMetrics(wstask.WithRegistry(registry), wstask.WithNamespace("wsecho"))
	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %s", err)
			}
		}()
		defer srv.Close()
	}

	svc := wstask.NewService(wstask.Config{
		URL:          opts.url,
		Protocols:    opts.protocols,
		FrameMode:    mode,
		MaxQueue:     opts.maxQueue,
		Backend:      wstask.Backend(opts.backend),
		PingInterval: opts.ping,
	},
		wstask.WithLogger(wstask.NewLogrusLogger(log)),
		wstask.WithMetrics(metrics),
	)
	defer svc.Dispose()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		received int
		failure  error
	)

	handler := func(c wstask.Client, ev wstask.Event) {
		switch ev.Kind {
		case wstask.EventOpened:
			log.Infof("connected to %s", opts.url)
		case wstask.EventMessage:
			if ev.Err != nil {
				log.Warnf("unexpected frame: %s", ev.Err)
				return
			}
			var resp wsResponse
			if err := wstask.DecodeValue(format, ev.Frame, &resp); err != nil {
				log.Warnf("cannot decode response: %s (%s)", err, ev.Frame)
				return
			}
			received++
			fmt.Printf("%d\n", resp.Value)
			if received >= opts.count {
				c.Close()
			}
		case wstask.EventError:
			failure = ev.Err
		case wstask.EventClosed:
			log.Infof("connection closed: code=%d reason=%q", ev.Code, ev.Reason)
		}
	}

	if err := svc.Connect(ctx, handler); err != nil {
		return err
	}

	// requests are buffered until the connection opens
	for i := 0; i < opts.count; i++ {
		if err := svc.SendValue(format, wsRequest{Value: opts.value}); err != nil {
			return errors.Wrapf(err, "cannot send request #%d", i)
		}
	}

	select {
	case <-svc.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(opts.timeout):
		return errors.Errorf("no answer after %s", opts.timeout)
	}

	if failure != nil {
		return failure
	}
	return nil
}
