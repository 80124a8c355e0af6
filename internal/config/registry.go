package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/EdNutting/autocue/pkg/provider/asr"
)

// ErrProviderNotRegistered is returned by [Registry.CreateASR] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps ASR provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	asr map[string]func(ASRConfig) (asr.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		asr: make(map[string]func(ASRConfig) (asr.Provider, error)),
	}
}

// RegisterASR registers an ASR provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterASR(name string, factory func(ASRConfig) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// CreateASR builds the ASR provider selected by cfg.Provider.
func (r *Registry) CreateASR(cfg ASRConfig) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[cfg.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr provider %q", ErrProviderNotRegistered, cfg.Provider)
	}
	return factory(cfg)
}

// ASRNames returns the registered ASR provider names, in no particular order.
func (r *Registry) ASRNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.asr))
	for name := range r.asr {
		names = append(names, name)
	}
	return names
}
