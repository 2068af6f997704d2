package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// indexFile holds the disk tier's entry index inside the cache directory.
const indexFile = "index.gob"

// DiskCache is the persistent tier. Values are zstd-compressed files named
// by their key (keys are already hex digests), tracked in a gob index that
// is rewritten on Close.
type DiskCache struct {
	basePath string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	size  int64
	index map[string]*diskEntry
	stats Stats
}

type diskEntry struct {
	Key        string
	Size       int64
	LastAccess time.Time
}

// NewDiskCache opens (or creates) a disk cache rooted at basePath.
func NewDiskCache(basePath string, capacity int64) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("cache: zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd decoder: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		encoder:  encoder,
		decoder:  decoder,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}
	// A missing or unreadable index just means an empty cache.
	dc.loadIndex()
	return dc, nil
}

// Get reads and decompresses the value for key. A missing or corrupt file
// is treated as a miss and dropped from the index.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	raw, err := os.ReadFile(dc.filePath(key))
	if err != nil {
		dc.dropLocked(key, entry)
		dc.stats.Misses++
		return nil, false
	}
	data, err := dc.decoder.DecodeAll(raw, nil)
	if err != nil {
		dc.dropLocked(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put compresses and writes value, evicting least recently accessed entries
// to stay inside capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	compressed := dc.encoder.EncodeAll(value, nil)
	diskSize := int64(len(compressed))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}
	if existing, ok := dc.index[key]; ok {
		dc.dropLocked(key, existing)
	}
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldestLocked()
	}

	if err := os.WriteFile(dc.filePath(key), compressed, 0o644); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}
	dc.index[key] = &diskEntry{Key: key, Size: diskSize, LastAccess: time.Now()}
	dc.size += diskSize
	return nil
}

// Clear removes every cached file and resets the index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		os.Remove(dc.filePath(key))
		dc.size -= entry.Size
	}
	dc.index = make(map[string]*diskEntry)
	dc.size = 0
	os.Remove(filepath.Join(dc.basePath, indexFile))
	return nil
}

// Stats returns a snapshot of the tier's counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Size = dc.size
	s.ItemCount = int64(len(dc.index))
	return s
}

// Close persists the index. The cache must not be used afterwards.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	f, err := os.Create(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		return fmt.Errorf("cache: write index: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(dc.index); err != nil {
		return fmt.Errorf("cache: encode index: %w", err)
	}
	dc.decoder.Close()
	return dc.encoder.Close()
}

func (dc *DiskCache) loadIndex() {
	f, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		return
	}
	defer f.Close()

	var index map[string]*diskEntry
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return
	}
	dc.index = index
	for _, entry := range index {
		dc.size += entry.Size
	}
}

func (dc *DiskCache) evictOldestLocked() {
	var oldestKey string
	var oldest *diskEntry
	for key, entry := range dc.index {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldestKey, oldest = key, entry
		}
	}
	if oldest != nil {
		os.Remove(dc.filePath(oldestKey))
		dc.dropLocked(oldestKey, oldest)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) dropLocked(key string, entry *diskEntry) {
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *DiskCache) filePath(key string) string {
	return filepath.Join(dc.basePath, key+".zst")
}
