package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LocationCache memoizes IANA timezone lookups, which read tzdata from disk on every call.
type LocationCache struct {
	cache *lru.Cache[string, *time.Location]
}

func NewLocationCache(size int) (*LocationCache, error) {
	if size <= 0 {
		size = 64
	}
	c, err := lru.New[string, *time.Location](size)
	if err != nil {
		return nil, err
	}
	return &LocationCache{cache: c}, nil
}

// Load resolves name; an empty name is UTC.
func (c *LocationCache) Load(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if loc, ok := c.cache.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	c.cache.Add(name, loc)
	return loc, nil
}
