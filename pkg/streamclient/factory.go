// Package streamclient is the entry point of the stream client: it
// turns a URL into a player bound to an executor, and makes sure the
// player is destroyed on that executor.
package streamclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/metrics"
	"github.com/xaionaro-go/streamclient/pkg/player/tlsplayer"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/protocol"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

type Factory struct {
	Registry *protocol.Registry
	Pool     *executor.Pool

	// TLSConfig is used for TLS-secured URLs; nil means the default
	// configuration.
	TLSConfig *tls.Config

	// ReleaseOnShutdown makes a handle release itself once its player
	// failed to start or its session ended.
	ReleaseOnShutdown bool

	// Options are applied to every player before the per-call options.
	Options types.Options
}

func NewFactory(
	registry *protocol.Registry,
	pool *executor.Pool,
) *Factory {
	return &Factory{
		Registry: registry,
		Pool:     pool,
	}
}

var DefaultFactory = sync.OnceValue(func() *Factory {
	return NewFactory(DefaultRegistry(), executor.DefaultPool())
})

// CreatePlayer creates a player using DefaultFactory.
func CreatePlayer(
	ctx context.Context,
	exec *executor.Executor,
	url string,
	opts ...types.Option,
) (*Handle, error) {
	return DefaultFactory().CreatePlayer(ctx, exec, url, opts...)
}

// CreatePlayer classifies the URL, constructs the player of the
// matching family, wraps it into TLS if needed, and binds it to exec
// (or to an executor from the pool if exec is nil). It does no I/O: the
// connection starts on Handle.Play.
func (f *Factory) CreatePlayer(
	ctx context.Context,
	exec *executor.Executor,
	url string,
	opts ...types.Option,
) (_ret *Handle, _err error) {
	logger.Debugf(ctx, "CreatePlayer(ctx, %v, '%s', %d options)", exec, url, len(opts))
	defer func() { logger.Debugf(ctx, "/CreatePlayer(ctx, %v, '%s', %d options): %v %v", exec, url, len(opts), _ret, _err) }()
	defer func() {
		if _err != nil {
			metrics.CreateFailures.WithLabelValues(failureReason(_err)).Inc()
		}
	}()

	classification, err := f.Registry.Classify(url)
	if err != nil {
		return nil, err
	}

	if exec == nil {
		if f.Pool == nil {
			return nil, ErrConstruction{Family: classification.Family, Err: ErrNoExecutor{}}
		}
		exec, err = f.Pool.Get(ctx)
		if err != nil {
			return nil, ErrConstruction{Family: classification.Family, Err: err}
		}
	}
	if exec.IsClosed() {
		return nil, ErrConstruction{Family: classification.Family, Err: executor.ErrClosed{Name: exec.Name}}
	}

	raw, err := f.Registry.Construct(classification.Family, exec)
	if err != nil {
		return nil, ErrConstruction{Family: classification.Family, Err: err}
	}

	settings := raw.Settings()
	seedDefaults(settings)
	f.Options.Apply(settings)
	types.Options(opts).Apply(settings)

	p, err := secure(raw, classification, f.TLSConfig)
	if err != nil {
		return nil, ErrConstruction{Family: classification.Family, Err: err}
	}

	h := bind(ctx, p, exec, url, classification)
	h.releaseOnShutdown = f.ReleaseOnShutdown
	metrics.PlayersCreated.WithLabelValues(classification.Family.String(), classification.Security.String()).Inc()
	return h, nil
}

// seedDefaults adds the default value of every setting the player did
// not set itself.
func seedDefaults(settings *types.Settings) {
	defaults := types.DefaultSettings()
	for _, key := range defaults.Keys() {
		if _, ok := settings.Get(key); ok {
			continue
		}
		v, _ := defaults.Get(key)
		settings.Set(key, v)
	}
}

type tlsConfigurable interface {
	SetTLSConfig(*tls.Config)
}

// secure makes the player use TLS if the classification requires it.
// HTTP families get the configuration passed to their HTTP transport,
// and the TCP-based ones are wrapped into the TLS decorator.
func secure(
	raw types.Player,
	classification protocol.Classification,
	cfg *tls.Config,
) (types.Player, error) {
	if classification.Security != streamtypes.SecurityModeTLS {
		return raw, nil
	}
	if classification.Family.IsHTTP() {
		if p, ok := raw.(tlsConfigurable); ok && cfg != nil {
			p.SetTLSConfig(cfg)
		}
		return raw, nil
	}
	dialable, ok := raw.(tlsplayer.DialablePlayer)
	if !ok {
		return nil, fmt.Errorf("a %s player (%T) does not support TLS", classification.Family, raw)
	}
	return tlsplayer.Wrap(dialable, cfg), nil
}

func failureReason(err error) string {
	switch {
	case errors.As(err, &protocol.ErrInvalidURL{}):
		return metrics.FailureReasonInvalidURL
	case errors.As(err, &protocol.ErrUnsupportedProtocol{}):
		return metrics.FailureReasonUnsupportedProtocol
	default:
		return metrics.FailureReasonConstruction
	}
}
