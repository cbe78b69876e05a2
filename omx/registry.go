/*
DESCRIPTION
  registry.go provides registration and lookup of Runtime backends by name.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package omx

import (
	"fmt"
	"sort"
	"sync"
)

var (
	backendsMu sync.Mutex
	backends   = make(map[string]func() (Runtime, error))
)

// Register makes a Runtime backend available under name. It panics if
// called twice with the same name or with a nil constructor.
func Register(name string, open func() (Runtime, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("omx: Register constructor is nil")
	}
	if _, dup := backends[name]; dup {
		panic("omx: Register called twice for backend " + name)
	}
	backends[name] = open
}

// Backends returns the sorted names of the registered backends.
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	var names []string
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open returns a new Runtime from the backend registered under name.
func Open(name string) (Runtime, error) {
	backendsMu.Lock()
	open, ok := backends[name]
	backendsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("omx: unknown backend %q (registered: %v)", name, Backends())
	}
	return open()
}
