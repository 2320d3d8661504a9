package vcs

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a VCSProvider from a token and an optional base URL
// override.
type Factory func(token, baseURL string) (VCSProvider, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a platform available to Get under the given name.
// Platform packages call it from init; a duplicate name panics.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("vcs: platform %q registered twice", name))
	}
	factories[name] = f
}

// Get builds the provider for a platform name.
func Get(name, token, baseURL string) (VCSProvider, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("vcs: unknown platform %q (supported: %v)", name, Names())
	}
	return f(token, baseURL)
}

// Names lists the registered platforms, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
