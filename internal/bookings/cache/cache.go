// Package cache holds short-lived availability answers for the read path.
//
// Entries are stored under a per-room generation. Invalidate bumps the
// generation, so an answer computed before a commit is written under the old
// generation and never served afterwards. The commit path never reads the
// cache.
package cache

import (
	"context"
	"time"

	"hotelbook/pkg/model"
)

type Key struct {
	RoomID   string
	CheckIn  time.Time
	CheckOut time.Time
}

func (k Key) dates() string {
	return k.CheckIn.Format(model.DateLayout) + ":" + k.CheckOut.Format(model.DateLayout)
}

type AvailabilityCache interface {
	// Get returns the cached answer for key. token identifies the room
	// generation seen and must be passed back to Set.
	Get(ctx context.Context, key Key) (available, hit bool, token string)
	Set(ctx context.Context, key Key, token string, available bool)
	Invalidate(ctx context.Context, roomID string) error
}

type Noop struct{}

func (Noop) Get(context.Context, Key) (bool, bool, string) { return false, false, "" }
func (Noop) Set(context.Context, Key, string, bool)        {}
func (Noop) Invalidate(context.Context, string) error      { return nil }
