package protocol

import (
	"fmt"
	"slices"

	"github.com/xaionaro-go/streamclient/pkg/executor"
	"github.com/xaionaro-go/streamclient/pkg/player/types"
	"github.com/xaionaro-go/streamclient/pkg/streamtypes"
)

// Constructor creates a player bound to the executor. It must not do
// any I/O.
type Constructor func(exec *executor.Executor) types.Player

// Registry maps protocol families to their constructors. It is filled
// before use and only read afterwards, so lookups take no lock.
type Registry struct {
	constructors map[streamtypes.ProtocolFamily]Constructor
}

func NewRegistry() *Registry {
	return &Registry{
		constructors: map[streamtypes.ProtocolFamily]Constructor{},
	}
}

func (r *Registry) Register(
	family streamtypes.ProtocolFamily,
	constructor Constructor,
) {
	if _, ok := r.constructors[family]; ok {
		panic(fmt.Errorf("protocol family '%s' is already registered", family))
	}
	r.constructors[family] = constructor
}

func (r *Registry) IsRegistered(family streamtypes.ProtocolFamily) bool {
	_, ok := r.constructors[family]
	return ok
}

func (r *Registry) Families() []streamtypes.ProtocolFamily {
	result := make([]streamtypes.ProtocolFamily, 0, len(r.constructors))
	for family := range r.constructors {
		result = append(result, family)
	}
	slices.Sort(result)
	return result
}

// Classify is Classify restricted to the registered families: a URL of
// a family missing from this build is an unsupported protocol.
func (r *Registry) Classify(url string) (Classification, error) {
	c, err := Classify(url)
	if err != nil {
		return Classification{}, err
	}
	if !r.IsRegistered(c.Family) {
		return Classification{}, ErrUnsupportedProtocol{URL: url, Scheme: c.Scheme}
	}
	return c, nil
}

func (r *Registry) Construct(
	family streamtypes.ProtocolFamily,
	exec *executor.Executor,
) (types.Player, error) {
	constructor, ok := r.constructors[family]
	if !ok {
		return nil, ErrNotRegistered{Family: family}
	}
	p := constructor(exec)
	if p == nil {
		return nil, fmt.Errorf("the constructor of '%s' returned nil", family)
	}
	return p, nil
}
