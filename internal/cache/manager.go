package cache

// Manager layers the memory tier over the optional disk tier. Reads promote
// disk hits into memory; writes go to both tiers.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
}

// Config sizes the tiers. A zero DiskCapacity or empty DiskPath disables
// the disk tier.
type Config struct {
	MemoryCapacity int64
	DiskCapacity   int64
	DiskPath       string
}

// DefaultConfig returns tier sizes suitable for spoken-article audio:
// 32 MiB in memory, 256 MiB on disk.
func DefaultConfig(diskPath string) Config {
	return Config{
		MemoryCapacity: 32 << 20,
		DiskCapacity:   256 << 20,
		DiskPath:       diskPath,
	}
}

// NewManager builds the tiers described by cfg.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{memory: NewMemoryCache(cfg.MemoryCapacity)}
	if cfg.DiskPath != "" && cfg.DiskCapacity > 0 {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity)
		if err != nil {
			return nil, err
		}
		m.disk = disk
	}
	return m, nil
}

// Get checks memory first, then disk. Disk hits are promoted to memory.
func (m *Manager) Get(key string) ([]byte, bool) {
	if value, ok := m.memory.Get(key); ok {
		return value, true
	}
	if m.disk == nil {
		return nil, false
	}
	value, ok := m.disk.Get(key)
	if !ok {
		return nil, false
	}
	m.memory.Put(key, value)
	return value, true
}

// Put writes to both tiers. An oversized value may land in only one tier,
// or neither; cache writes are best effort.
func (m *Manager) Put(key string, value []byte) {
	m.memory.Put(key, value)
	if m.disk != nil {
		m.disk.Put(key, value)
	}
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Stats returns per-tier usage, keyed "memory" and "disk".
func (m *Manager) Stats() map[string]Stats {
	stats := map[string]Stats{"memory": m.memory.Stats()}
	if m.disk != nil {
		stats["disk"] = m.disk.Stats()
	}
	return stats
}

// Close flushes the disk tier's index.
func (m *Manager) Close() error {
	if m.disk != nil {
		return m.disk.Close()
	}
	return nil
}
