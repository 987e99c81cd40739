// Package di provides a small lazily-resolving dependency injection container.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by name.
type ServiceRegistry interface {
	Get(name string) any
}

// Container stores values and lazy factories by name.
type Container interface {
	ServiceRegistry
	Register(name string, v any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
	Has(name string) bool
}

type entry struct {
	value    any
	factory  func(ServiceRegistry) any
	resolved bool
}

type container struct {
	mu       sync.Mutex
	entries  map[string]*entry
	resolved map[string]bool // names currently being resolved
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{
		entries:  make(map[string]*entry),
		resolved: make(map[string]bool),
	}
}

// Register stores a ready value.
func (c *container) Register(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{value: v, resolved: true}
}

// RegisterFactory stores a factory that runs once on first Get.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

// Has reports whether name was registered.
func (c *container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[name]
	return ok
}

// Get resolves name, running its factory on first use. Panics on unknown
// names and on dependency cycles; both are wiring bugs.
func (c *container) Get(name string) any {
	c.mu.Lock()
	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: service %q not registered", name))
	}
	if e.resolved {
		v := e.value
		c.mu.Unlock()
		return v
	}
	if c.resolved[name] {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: dependency cycle resolving %q", name))
	}
	c.resolved[name] = true
	factory := e.factory
	c.mu.Unlock()

	// Factories may call Get recursively, so the lock is not held here.
	v := factory(c)

	c.mu.Lock()
	delete(c.resolved, name)
	e.value = v
	e.resolved = true
	e.factory = nil
	c.mu.Unlock()

	return v
}
