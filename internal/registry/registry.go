// Package registry implements the dispatch layer of spec §4.B: a hashed
// lookup from (protocol, selector) to an action decoder, and from (factory,
// selector) to a discovery decoder. It is built once at startup from a
// declarative list of entries and is immutable (and therefore safely
// shared, lock-free) for the rest of the process's life, per §5.
package registry

import (
	"context"
	"fmt"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/store"
)

// ActionDecoder classifies one call trace into an Action. Implementations
// live in internal/decoders; the registry only holds the interface so it
// never needs to import that package.
type ActionDecoder interface {
	// Decode runs the decoder's transformation body over a CallInfo already
	// sliced/scanned according to the decoder's declared data needs (§4.C).
	Decode(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace) (models.Action, error)
}

// DiscoveryDecoder classifies one CREATE trace into newly deployed pools
// (§4.D). May return more than one NewPool for a meta-factory.
type DiscoveryDecoder interface {
	Decode(ctx context.Context, snap *store.Snapshot, deployed string, traceIndex int, parentCallData []byte) ([]models.NewPool, error)
}

// ActionEntry is one declarative (protocol, selector) -> decoder binding.
type ActionEntry struct {
	Protocol string
	Selector [4]byte
	Decoder  ActionDecoder
}

// DiscoveryEntry is one declarative (factory, selector) -> decoder binding.
type DiscoveryEntry struct {
	Factory  string // checksum/hex address of the factory contract
	Selector [4]byte
	Decoder  DiscoveryDecoder
}

// Registry is the built, immutable dispatch table.
type Registry struct {
	actions    map[models.ActionMatchKey]ActionDecoder
	discovery  map[string]DiscoveryDecoder // keyed by factory-hex + selector, see discoveryKey
}

// NewRegistry builds a Registry from declarative entries. Duplicate keys are
// a fatal configuration error (§4.B, §7 ErrorKindFatal) and panic rather than
// return an error, since registry construction only ever happens at process
// startup from a fixed manifest — there is no runtime path that should ever
// observe a duplicate.
func NewRegistry(actionEntries []ActionEntry, discoveryEntries []DiscoveryEntry) *Registry {
	r := &Registry{
		actions:   make(map[models.ActionMatchKey]ActionDecoder, len(actionEntries)),
		discovery: make(map[string]DiscoveryDecoder, len(discoveryEntries)),
	}

	for _, e := range actionEntries {
		key := models.ActionMatchKey{Protocol: e.Protocol, Selector: e.Selector}
		if _, exists := r.actions[key]; exists {
			panic(fmt.Sprintf("registry: duplicate action decoder for protocol=%s selector=%x", e.Protocol, e.Selector))
		}
		r.actions[key] = e.Decoder
	}

	for _, e := range discoveryEntries {
		key := discoveryKey(e.Factory, e.Selector)
		if _, exists := r.discovery[key]; exists {
			panic(fmt.Sprintf("registry: duplicate discovery decoder for factory=%s selector=%x", e.Factory, e.Selector))
		}
		r.discovery[key] = e.Decoder
	}

	return r
}

func discoveryKey(factory string, selector [4]byte) string {
	return fmt.Sprintf("%s:%x", factory, selector)
}

// LookupAction resolves the action decoder for (protocol, selector). Ok is
// false on a miss (§4.B step 3: NotRecognized).
func (r *Registry) LookupAction(protocol string, selector [4]byte) (ActionDecoder, bool) {
	d, ok := r.actions[models.ActionMatchKey{Protocol: protocol, Selector: selector}]
	return d, ok
}

// LookupDiscovery resolves the factory decoder for (factory, selector).
func (r *Registry) LookupDiscovery(factory string, selector [4]byte) (DiscoveryDecoder, bool) {
	d, ok := r.discovery[discoveryKey(factory, selector)]
	return d, ok
}

// ActionCount and DiscoveryCount report registry size, used by startup
// logging and tests asserting the manifest registered what it should.
func (r *Registry) ActionCount() int    { return len(r.actions) }
func (r *Registry) DiscoveryCount() int { return len(r.discovery) }
