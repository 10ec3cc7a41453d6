package dayone

import "fmt"

type cacheKey struct {
	kind   string
	search string
}

// cache is an append-only read-through cache keyed by (query kind, search key).
// Entries are never invalidated; a new Store starts empty.
type cache struct {
	items map[cacheKey]any
	hits  int
}

func newCache() *cache {
	return &cache{items: make(map[cacheKey]any)}
}

// cached returns the memoized value for (kind, search) or calls load and
// stores its result. Failed loads are not stored.
func cached[T any](c *cache, kind string, search any, load func() (T, error)) (T, error) {
	key := cacheKey{kind: kind, search: fmt.Sprint(search)}
	if v, ok := c.items[key]; ok {
		c.hits++
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.items[key] = v
	return v, nil
}
