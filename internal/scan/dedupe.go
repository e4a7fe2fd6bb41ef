package scan

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Deduper remembers scans for a TTL so a double scan of the same code for
// the same order is ignored.
type Deduper struct {
	cache *ttlcache.Cache[string, struct{}]
}

// NewDeduper starts the expiry loop; call Close to stop it.
func NewDeduper(ttl time.Duration) *Deduper {
	cache := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](ttl),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go cache.Start()

	return &Deduper{cache: cache}
}

// Key is the cache key for one order and raw code.
func Key(orderID, raw string) string {
	sum := sha1.Sum([]byte(orderID + "|" + raw))
	return "scan:" + orderID + ":" + hex.EncodeToString(sum[:])
}

// Seen reports whether the code was already scanned for the order within the
// TTL, and records it if not. A repeat does not extend the window.
func (d *Deduper) Seen(orderID, raw string) bool {
	_, found := d.cache.GetOrSet(Key(orderID, raw), struct{}{})
	return found
}

// Forget drops a recorded scan, used when the scan was rejected downstream.
func (d *Deduper) Forget(orderID, raw string) {
	d.cache.Delete(Key(orderID, raw))
}

func (d *Deduper) Close() {
	d.cache.Stop()
}
