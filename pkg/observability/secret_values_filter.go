package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/field"
	"github.com/facebookincubator/go-belt/tool/logger"
	loggertypes "github.com/facebookincubator/go-belt/tool/logger/types"
	"github.com/xaionaro-go/xsync"
)

const hiddenValue = "<HIDDEN>"

// SecretsProvider returns the values that must never appear in logs,
// e.g. SRT passphrases.
type SecretsProvider interface {
	SecretWords() []string
}

type StaticSecretsProvider struct {
	xsync.Mutex
	SecretWordValues []string
}

var _ SecretsProvider = (*StaticSecretsProvider)(nil)

func NewStaticSecretsProvider() *StaticSecretsProvider {
	return &StaticSecretsProvider{}
}

// AddSecretWords registers more secrets; empty words are ignored.
func (sp *StaticSecretsProvider) AddSecretWords(words ...string) {
	sp.Do(xsync.WithNoLogging(context.TODO(), true), func() {
		for _, word := range words {
			if word == "" {
				continue
			}
			sp.SecretWordValues = append(sp.SecretWordValues, word)
		}
	})
}

func (sp *StaticSecretsProvider) SecretWords() []string {
	return xsync.DoR1(xsync.WithNoLogging(context.TODO(), true), &sp.Mutex, func() []string {
		return sp.SecretWordValues
	})
}

// SecretValuesFilter replaces the secret values in the textual log
// arguments (strings, byte slices, errors and fmt.Stringer-s).
type SecretValuesFilter struct {
	SecretsProvider SecretsProvider
}

var _ logger.PreHook = (*SecretValuesFilter)(nil)

func NewSecretValuesFilter(sp SecretsProvider) *SecretValuesFilter {
	return &SecretValuesFilter{
		SecretsProvider: sp,
	}
}

func (sf *SecretValuesFilter) ProcessInput(
	_ belt.TraceIDs,
	_ logger.Level,
	args ...any,
) loggertypes.PreHookResult {
	sf.filterArgs(args)
	return loggertypes.PreHookResult{}
}

func (sf *SecretValuesFilter) ProcessInputf(
	_ belt.TraceIDs,
	_ logger.Level,
	_ string,
	args ...any,
) loggertypes.PreHookResult {
	sf.filterArgs(args)
	return loggertypes.PreHookResult{}
}

func (sf *SecretValuesFilter) ProcessInputFields(
	_ belt.TraceIDs,
	_ logger.Level,
	_ string,
	fields field.AbstractFields,
) loggertypes.PreHookResult {
	fields.ForEachField(func(f *field.Field) bool {
		f.Value = sf.filterValue(f.Value)
		return true
	})
	return loggertypes.PreHookResult{}
}

func (sf *SecretValuesFilter) filterArgs(args []any) {
	for idx, arg := range args {
		args[idx] = sf.filterValue(arg)
	}
}

func (sf *SecretValuesFilter) filterValue(v any) any {
	switch v := v.(type) {
	case string:
		return sf.FilterString(v)
	case []byte:
		return []byte(sf.FilterString(string(v)))
	case error:
		return sf.replaceIfChanged(v, v.Error())
	case fmt.Stringer:
		return sf.replaceIfChanged(v, v.String())
	default:
		return v
	}
}

func (sf *SecretValuesFilter) replaceIfChanged(orig any, s string) any {
	censored := sf.FilterString(s)
	if censored == s {
		return orig
	}
	return censored
}

func (sf *SecretValuesFilter) FilterString(s string) string {
	if sf.SecretsProvider == nil {
		return s
	}
	for _, secret := range sf.SecretsProvider.SecretWords() {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, hiddenValue)
	}
	return s
}
