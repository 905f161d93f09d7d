package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type localEntry struct {
	available bool
	expiresAt time.Time
}

// Local is an in-process AvailabilityCache for a single instance and tests.
// Entries are grouped per room so Invalidate can drop them all; expired ones
// are swept at most once per TTL.
type Local struct {
	mu        sync.Mutex
	gens      map[string]int64
	rooms     map[string]map[string]localEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLocal(ttl time.Duration) *Local {
	return &Local{
		gens:  make(map[string]int64),
		rooms: make(map[string]map[string]localEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Local) Get(_ context.Context, key Key) (bool, bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := strconv.FormatInt(c.gens[key.RoomID], 10)
	entries := c.rooms[key.RoomID]
	e, ok := entries[key.dates()]
	if !ok {
		return false, false, gen
	}
	if !c.now().Before(e.expiresAt) {
		c.remove(key.RoomID, key.dates())
		return false, false, gen
	}
	return e.available, true, gen
}

func (c *Local) Set(_ context.Context, key Key, token string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != strconv.FormatInt(c.gens[key.RoomID], 10) {
		return
	}

	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweep(now)
	}

	entries, ok := c.rooms[key.RoomID]
	if !ok {
		entries = make(map[string]localEntry)
		c.rooms[key.RoomID] = entries
	}
	entries[key.dates()] = localEntry{available: available, expiresAt: now.Add(c.ttl)}
}

func (c *Local) Invalidate(_ context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[roomID]++
	delete(c.rooms, roomID)
	return nil
}

func (c *Local) remove(roomID, dates string) {
	entries := c.rooms[roomID]
	delete(entries, dates)
	if len(entries) == 0 {
		delete(c.rooms, roomID)
	}
}

func (c *Local) sweep(now time.Time) {
	for roomID, entries := range c.rooms {
		for dates, e := range entries {
			if !now.Before(e.expiresAt) {
				delete(entries, dates)
			}
		}
		if len(entries) == 0 {
			delete(c.rooms, roomID)
		}
	}
	c.lastSweep = now
}

func (c *Local) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entries := range c.rooms {
		n += len(entries)
	}
	return n
}
