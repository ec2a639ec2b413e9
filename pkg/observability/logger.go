package observability

import (
	"github.com/facebookincubator/go-belt/tool/logger"
	xlogrus "github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logrus-backed logger filtered by LogLevelFilter
// (which is set to level) and, if secrets is not nil, by a
// SecretValuesFilter.
func NewLogger(
	level logger.Level,
	secrets SecretsProvider,
) logger.Logger {
	LogLevelFilter.SetLevel(level)

	ll := xlogrus.DefaultLogrusLogger()
	if f, ok := ll.Formatter.(*logrus.TextFormatter); ok {
		f.ForceColors = true
	}
	l := xlogrus.New(ll).WithLevel(logger.LevelTrace).WithPreHooks(&LogLevelFilter)
	if secrets != nil {
		l = l.WithPreHooks(NewSecretValuesFilter(secrets))
	}
	logrus.SetLevel(xlogrus.LevelToLogrus(level))
	return l
}
