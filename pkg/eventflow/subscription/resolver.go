package subscription

import (
	"reflect"
	"sync"
)

// ServiceMap is a Resolver backed by a map from type to instance.
// It is safe for concurrent use.
type ServiceMap struct {
	mu       sync.RWMutex
	services map[reflect.Type]any
}

// NewServiceMap creates an empty service map.
func NewServiceMap() *ServiceMap {
	return &ServiceMap{services: make(map[reflect.Type]any)}
}

// Provide registers v as the instance for T.
func Provide[T any](m *ServiceMap, v T) *ServiceMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[reflect.TypeFor[T]()] = v
	return m
}

// Resolve implements Resolver.
func (m *ServiceMap) Resolve(t reflect.Type) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.services[t]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return v, nil
}
