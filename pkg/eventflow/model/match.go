package model

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMatchCacheSize bounds the number of cached type-match results.
const DefaultMatchCacheSize = 4096

type typePair struct {
	actual     reflect.Type
	configured reflect.Type
}

// Matcher decides whether a runtime type satisfies a configured type.
// It is safe for concurrent use.
type Matcher struct {
	cache *lru.Cache[typePair, bool]
}

// NewMatcher creates a matcher caching up to size results.
// A non-positive size uses DefaultMatchCacheSize.
func NewMatcher(size int) *Matcher {
	if size <= 0 {
		size = DefaultMatchCacheSize
	}
	cache, err := lru.New[typePair, bool](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Matcher{cache: cache}
}

// Matches reports whether actual is configured or a subtype of configured.
// A nil configured type matches everything; a nil actual type only matches
// a nil or interface configured type.
func (m *Matcher) Matches(actual, configured reflect.Type) bool {
	if configured == nil {
		return true
	}
	if actual == nil {
		return configured.Kind() == reflect.Interface
	}
	if actual == configured {
		return true
	}

	key := typePair{actual: actual, configured: configured}
	if ok, found := m.cache.Get(key); found {
		return ok
	}
	ok := actual.AssignableTo(configured)
	m.cache.Add(key, ok)
	return ok
}

// TypeOf returns the runtime type of v, or nil for a nil interface.
func TypeOf(v any) reflect.Type {
	if v == nil {
		return nil
	}
	return reflect.TypeOf(v)
}
