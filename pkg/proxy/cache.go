package proxy

import (
	"sync"
	"time"
)

// stateCache holds, per device, the most recent full-status message of
// each known slot. Writes are bounded to a handful of message types and
// reads happen once per client connect, so a single mutex is enough.
type stateCache struct {
	mu  sync.RWMutex
	byDevice map[string]*DeviceStateCache
}

func newStateCache() *stateCache {
	return &stateCache{byDevice: make(map[string]*DeviceStateCache)}
}

func (c *stateCache) get(deviceID string) (DeviceStateCache, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.byDevice[deviceID]
	if !ok {
		return DeviceStateCache{}, false
	}

	return *entry, true
}

// applyFullState replaces the named slot (status/device_info/esp_status/
// pico_status) and advances LastUpdated.
func (c *stateCache) applyFullState(deviceID, slot string, payload map[string]interface{}, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.byDevice[deviceID]
	if entry == nil {
		entry = &DeviceStateCache{}
		c.byDevice[deviceID] = entry
	}

	switch slot {
	case "status":
		entry.Status = payload
	case "device_info":
		entry.DeviceInfo = payload
	case "esp_status":
		entry.EspStatus = payload
	case "pico_status":
		entry.PicoStatus = payload
	}

	entry.LastUpdated = now
}

// touchFreshness advances LastUpdated without replacing any stored
// slot. status_delta messages refresh freshness only; they never
// replace the cached full status.
func (c *stateCache) touchFreshness(deviceID string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.byDevice[deviceID]
	if entry == nil {
		entry = &DeviceStateCache{}
		c.byDevice[deviceID] = entry
	}

	entry.LastUpdated = now
}

// clear erases deviceID's entry entirely. Called on device_offline so
// the next reconnect starts from an empty cache.
func (c *stateCache) clear(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byDevice, deviceID)
}
