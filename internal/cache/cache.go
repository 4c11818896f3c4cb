package cache

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxItems limita o número de entradas mantidas em memória
const DefaultMaxItems = 256

// Cache é um cache em memória com TTL e limite de tamanho
type Cache struct {
	lru    *expirable.LRU[string, interface{}]
	ttl    time.Duration
	hits   int64
	misses int64
}

// Stats contém estatísticas do cache
type Stats struct {
	ItemCount int           `json:"item_count"`
	HitCount  int64         `json:"hit_count"`
	MissCount int64         `json:"miss_count"`
	TTL       time.Duration `json:"ttl_ns"`
}

// NewCache cria um novo cache com o TTL informado
func NewCache(ttl time.Duration) *Cache {
	return NewCacheWithSize(ttl, DefaultMaxItems)
}

// NewCacheWithSize cria um cache com TTL e número máximo de itens
func NewCacheWithSize(ttl time.Duration, maxItems int) *Cache {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Cache{
		lru: expirable.NewLRU[string, interface{}](maxItems, nil, ttl),
		ttl: ttl,
	}
}

// Get recupera um valor do cache
func (c *Cache) Get(key string) (interface{}, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return v, ok
}

// Set armazena um valor com o TTL padrão
func (c *Cache) Set(key string, value interface{}) {
	c.lru.Add(key, value)
}

// Delete remove um valor do cache
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// InvalidatePrefix remove todas as chaves com o prefixo informado
func (c *Cache) InvalidatePrefix(prefix string) {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Size retorna o número de itens não expirados
func (c *Cache) Size() int {
	return c.lru.Len()
}

// Stats retorna as estatísticas do cache
func (c *Cache) Stats() Stats {
	return Stats{
		ItemCount: c.lru.Len(),
		HitCount:  atomic.LoadInt64(&c.hits),
		MissCount: atomic.LoadInt64(&c.misses),
		TTL:       c.ttl,
	}
}
