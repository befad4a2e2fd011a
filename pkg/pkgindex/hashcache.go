package pkgindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// hashCache fronts the persistent per-file MD5 hash cache with an
// in-memory LRU (spec §4.6: "hash computation must reuse the persistent
// cache to amortize I/O"). golang-lru bounds memory use for package
// caches with far more files than fit comfortably resident.
type hashCache struct {
	path string

	mu     sync.Mutex
	memory *lru.Cache[string, string]
	dirty  map[string]string
}

func newHashCache(path string, size int) *hashCache {
	if size <= 0 {
		size = 512
	}
	memory, _ := lru.New[string, string](size)
	return &hashCache{
		path:   path,
		memory: memory,
		dirty:  make(map[string]string),
	}
}

// hashOf returns file's MD5 hex digest, computing and caching it on first
// request.
func (h *hashCache) hashOf(file string) (string, error) {
	h.mu.Lock()
	if cached, ok := h.memory.Get(file); ok {
		h.mu.Unlock()
		return cached, nil
	}
	h.mu.Unlock()

	digest, err := utils.HashFileMD5(file)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.memory.Add(file, digest)
	h.dirty[file] = digest
	h.mu.Unlock()

	return digest, nil
}

// load reads the persistent hash cache file into the in-memory LRU. A
// missing file is not an error: the cache simply starts empty.
func (h *hashCache) load() error {
	if h.path == "" {
		return nil
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("pkgindex: reading hash cache %s: %w", h.path, err)
	}

	if len(data) < 4 {
		return fmt.Errorf("pkgindex: truncated hash cache header")
	}
	count := binary.LittleEndian.Uint32(data[:4])
	data = data[4:]

	h.mu.Lock()
	defer h.mu.Unlock()

	for i := uint32(0); i < count; i++ {
		path, rest, err := consumeCacheString(data)
		if err != nil {
			return err
		}
		hash, rest2, err := consumeCacheString(rest)
		if err != nil {
			return err
		}
		h.memory.Add(path, hash)
		data = rest2
	}
	return nil
}

// save writes every entry currently in the in-memory LRU back to the
// persistent cache file (spec §4.6 "on commit, write it back").
func (h *hashCache) save() error {
	if h.path == "" {
		return nil
	}

	h.mu.Lock()
	keys := h.memory.Keys()
	entries := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := h.memory.Peek(k); ok {
			entries[k] = v
		}
	}
	h.mu.Unlock()

	var buf []byte
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(entries)))
	buf = append(buf, count[:]...)
	for path, hash := range entries {
		buf = appendCacheString(buf, path)
		buf = appendCacheString(buf, hash)
	}

	return os.WriteFile(h.path, buf, 0o600)
}

func appendCacheString(buf []byte, s string) []byte {
	buf = protowire.AppendVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func consumeCacheString(data []byte) (string, []byte, error) {
	n, sz := protowire.ConsumeVarint(data)
	if sz < 0 {
		return "", nil, fmt.Errorf("pkgindex: malformed hash cache string length")
	}
	data = data[sz:]
	if uint64(len(data)) < n {
		return "", nil, fmt.Errorf("pkgindex: truncated hash cache string")
	}
	return string(data[:n]), data[n:], nil
}
