package memsys

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// CacheConfig holds the geometry and latency of one cache level.
type CacheConfig struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
}

// CacheResult is the outcome of a tag lookup.
type CacheResult struct {
	Hit bool
	// Evicted is true if a valid block was replaced.
	Evicted     bool
	EvictedAddr uint64
	// Writeback is true if the replaced block was dirty.
	Writeback bool
}

// CacheStats holds cache performance statistics.
type CacheStats struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns the fraction of accesses that hit.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a write-allocate, write-back tag store with LRU replacement. It
// tracks which blocks are present but holds no data.
type Cache struct {
	config    CacheConfig
	directory *akitacache.DirectoryImpl
	stats     CacheStats
}

// NewCache creates an empty cache.
func NewCache(config CacheConfig) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() CacheConfig {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	return c.stats
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

// Access looks up the block of addr and allocates it on a miss.
func (c *Cache) Access(kind AccessKind, addr uint64) CacheResult {
	if kind == Store {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if kind == Store {
			block.IsDirty = true
		}
		return CacheResult{Hit: true}
	}

	c.stats.Misses++
	result := CacheResult{}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = kind == Store
	c.directory.Visit(victim)

	return result
}

// Contains returns true if the block of addr is present.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Flush invalidates all blocks and returns the number of dirty blocks written
// back.
func (c *Cache) Flush() int {
	dirty := 0
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				dirty++
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return dirty
}

// ResetStats clears statistics and keeps the blocks.
func (c *Cache) ResetStats() {
	c.stats = CacheStats{}
}

// Reset invalidates all blocks without writeback and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = CacheStats{}
}
