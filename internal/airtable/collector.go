package airtable

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/redis/go-redis/v9"
)

// snapshotKey is the Redis key holding the serialized buyer snapshot so a
// restarted server can serve data before its first poll completes.
const snapshotKey = "naybourhood:airtable:buyers"

// snapshotTTL bounds how stale a persisted snapshot may be before a
// restarted server ignores it.
const snapshotTTL = 30 * time.Minute

// Collector polls the buyers table on a fixed interval and holds the
// latest normalized snapshot in memory. Each successful fetch fully
// replaces the previous snapshot; there is no merging of concurrent
// local mutations, only invalidation by the next poll.
type Collector struct {
	client   *Client
	table    string
	interval time.Duration
	pageSize int

	mu        sync.RWMutex
	buyers    []domain.Buyer
	lastFetch time.Time
	lastErr   error
	running   bool

	stopChan chan struct{}

	// Optional Redis persistence for the snapshot.
	redisClient *redis.Client
}

// NewCollector creates a collector for the given table.
func NewCollector(client *Client, table string, interval time.Duration, pageSize int) *Collector {
	if interval <= 0 {
		interval = 90 * time.Second
	}
	return &Collector{
		client:   client,
		table:    table,
		interval: interval,
		pageSize: pageSize,
		stopChan: make(chan struct{}),
	}
}

// SetRedisClient enables snapshot persistence across restarts.
func (c *Collector) SetRedisClient(rc *redis.Client) {
	c.redisClient = rc
}

// Start begins periodic collection. A persisted snapshot, if present and
// fresh, is loaded synchronously so the first HTTP request never races the
// first poll.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.loadSnapshot(ctx)
	go c.collectLoop(ctx)
}

// Stop halts collection.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopChan)
}

func (c *Collector) collectLoop(ctx context.Context) {
	// Initial fetch
	c.fetch(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.fetch(ctx)
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// FetchNow forces an immediate poll, used by the manual refresh endpoint.
func (c *Collector) FetchNow(ctx context.Context) {
	c.fetch(ctx)
}

func (c *Collector) fetch(ctx context.Context) {
	records, err := c.client.ListAll(ctx, c.table, ListOptions{PageSize: c.pageSize})
	if err != nil {
		log.Printf("[airtable.Collector] fetch failed: %v", err)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return
	}

	buyers, mapErrs := NormalizeAll(records)
	for _, me := range mapErrs {
		log.Printf("[airtable.Collector] skipping record: %v", me)
	}

	c.mu.Lock()
	c.buyers = buyers
	c.lastFetch = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	c.persistSnapshot(ctx, buyers)
}

// Buyers returns the latest snapshot. The slice is a copy; callers may
// filter it freely.
func (c *Collector) Buyers() []domain.Buyer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Buyer, len(c.buyers))
	copy(out, c.buyers)
	return out
}

// Buyer returns one buyer from the snapshot by ID.
func (c *Collector) Buyer(id string) (domain.Buyer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.buyers {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Buyer{}, false
}

// Status reports collection health for the system status endpoint.
type Status struct {
	Running   bool      `json:"running"`
	LastFetch time.Time `json:"last_fetch"`
	Count     int       `json:"count"`
	LastError string    `json:"last_error,omitempty"`
}

// GetStatus returns the collector's current health.
func (c *Collector) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Running:   c.running,
		LastFetch: c.lastFetch,
		Count:     len(c.buyers),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// persistedSnapshot is the Redis serialization envelope.
type persistedSnapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Buyers    []domain.Buyer `json:"buyers"`
}

func (c *Collector) persistSnapshot(ctx context.Context, buyers []domain.Buyer) {
	if c.redisClient == nil {
		return
	}
	data, err := json.Marshal(persistedSnapshot{FetchedAt: time.Now(), Buyers: buyers})
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		log.Printf("[airtable.Collector] snapshot persist failed: %v", err)
	}
}

func (c *Collector) loadSnapshot(ctx context.Context) {
	if c.redisClient == nil {
		return
	}
	data, err := c.redisClient.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[airtable.Collector] snapshot load failed: %v", err)
		}
		return
	}
	var snap persistedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	c.mu.Lock()
	c.buyers = snap.Buyers
	c.lastFetch = snap.FetchedAt
	c.mu.Unlock()
	log.Printf("[airtable.Collector] restored snapshot of %d buyers from %s",
		len(snap.Buyers), snap.FetchedAt.Format(time.RFC3339))
}
