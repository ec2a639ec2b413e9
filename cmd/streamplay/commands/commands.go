package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/goccy/go-yaml"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/streamclient/pkg/config"
	xobservability "github.com/xaionaro-go/streamclient/pkg/observability"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamclient"
)

var (
	// Access these variables only from a main package:

	Root = &cobra.Command{
		Use: os.Args[0],
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			xobservability.LogLevelFilter.SetLevel(LoggerLevel)
			logger.Debugf(ctx, "log-level: %v", LoggerLevel)

			metricsAddr, err := cmd.Flags().GetString("metrics-addr")
			if err != nil {
				logger.Errorf(ctx, "unable to get the value of the flag 'metrics-addr': %v", err)
			}
			if metricsAddr != "" {
				observability.Go(ctx, func(ctx context.Context) {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					logger.Infof(ctx, "starting to listen for metrics requests at '%s'", metricsAddr)
					logger.Error(ctx, http.ListenAndServe(metricsAddr, mux))
				})
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			logger.Debug(ctx, "end")
		},
	}

	Play = &cobra.Command{
		Use:   "play <url>",
		Short: "connect to a stream and count the received media until it ends",
		Args:  cobra.ExactArgs(1),
		Run:   play,
	}

	Classify = &cobra.Command{
		Use:   "classify <url>...",
		Short: "print the protocol family and the security mode of URLs",
		Args:  cobra.MinimumNArgs(1),
		Run:   classify,
	}

	Defaults = &cobra.Command{
		Use:   "defaults",
		Short: "print the default player settings",
		Args:  cobra.ExactArgs(0),
		Run:   defaults,
	}

	LoggerLevel = logger.LevelWarning

	Secrets = xobservability.NewStaticSecretsProvider()
)

func init() {
	Root.AddCommand(Play)
	Root.AddCommand(Classify)
	Root.AddCommand(Defaults)

	Root.PersistentFlags().Var(&LoggerLevel, "log-level", "")
	Root.PersistentFlags().String("config", "~/.streamplay.yaml", "the path to the config file")
	Root.PersistentFlags().String("metrics-addr", "", "address to serve Prometheus metrics at")

	Play.Flags().Duration("duration", 0, "stop playing after this time (zero means until the stream ends)")
	Play.Flags().Bool("insecure", false, "do not verify TLS certificates")
	Play.Flags().String("passphrase", "", "SRT passphrase")
	Play.Flags().Duration("latency", 0, "initial playback latency")
}

func assertNoError(ctx context.Context, err error) {
	if err != nil {
		logger.Panic(ctx, err)
	}
}

func readConfig(cmd *cobra.Command) *config.Config {
	ctx := cmd.Context()

	cfgPath, err := cmd.Flags().GetString("config")
	assertNoError(ctx, err)
	cfgPath, err = expandPath(cfgPath)
	assertNoError(ctx, err)

	cfg, err := config.ReadConfigFile(ctx, cfgPath)
	assertNoError(ctx, err)
	Secrets.AddSecretWords(cfg.SecretWords()...)
	return cfg
}

func play(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	url := args[0]
	cfg := readConfig(cmd)

	duration, err := cmd.Flags().GetDuration("duration")
	assertNoError(ctx, err)
	insecure, err := cmd.Flags().GetBool("insecure")
	assertNoError(ctx, err)
	passphrase, err := cmd.Flags().GetString("passphrase")
	assertNoError(ctx, err)
	latency, err := cmd.Flags().GetDuration("latency")
	assertNoError(ctx, err)

	if insecure {
		cfg.TLS.InsecureSkipVerify = true
	}
	var opts []types.Option
	if passphrase != "" {
		Secrets.AddSecretWords(passphrase)
		opts = append(opts, types.OptionPassphrase(passphrase))
	}
	if cmd.Flags().Changed("latency") {
		opts = append(opts, types.OptionLatency(latency))
	}

	f := cfg.NewFactory(ctx, streamclient.DefaultRegistry())
	defer f.Pool.Close(ctx)

	h, err := f.CreatePlayer(ctx, nil, url, opts...)
	assertNoError(ctx, err)
	logger.Infof(ctx, "created a %s", h)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	if duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, duration)
		defer cancelTimeout()
	}

	endCh := make(chan error, 1)
	h.SetListener(types.ListenerFuncs{
		PlayResult: func(ctx context.Context, err error) {
			if err != nil {
				endCh <- fmt.Errorf("unable to start playing: %w", err)
				return
			}
			fmt.Printf("playing %s\n", h.Classification())
		},
		Shutdown: func(ctx context.Context, err error) {
			endCh <- err
		},
	})
	assertNoError(ctx, h.Play(ctx, ""))

	var playErr error
	select {
	case <-ctx.Done():
		logger.Debugf(ctx, "stopping: %v", context.Cause(ctx))
	case playErr = <-endCh:
	}

	err = h.Release(context.WithoutCancel(ctx))
	if err != nil && !errors.As(err, &streamclient.ErrAlreadyReleased{}) {
		logger.Errorf(ctx, "unable to release the player: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		logger.Errorf(ctx, "the player was not torn down in time")
	}

	stats := h.Stats()
	fmt.Printf("received %s and %d media units\n", humanize.Bytes(stats.BytesReceived), stats.MediaUnits)
	if !stats.LastMediaAt.IsZero() {
		fmt.Printf("last media: %s\n", humanize.Time(stats.LastMediaAt))
	}
	if playErr != nil {
		fmt.Printf("ended: %v\n", playErr)
	}
}

func classify(cmd *cobra.Command, args []string) {
	registry := streamclient.DefaultRegistry()
	for _, url := range args {
		c, err := registry.Classify(url)
		if err != nil {
			fmt.Printf("%s: %v\n", url, err)
			continue
		}
		fmt.Printf("%s: %s\n", url, c)
	}
}

func defaults(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	b, err := yaml.Marshal(types.DefaultSettings())
	assertNoError(ctx, err)
	fmt.Printf("%s", b)
}
