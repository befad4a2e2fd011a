// Package pkgindex implements the package index of spec §4.6: a
// built-once-by-Initialize, read-only-after-that map from package identity to
// the module files it supplies, used to annotate inspected modules with
// the package(s) that could have supplied them.
package pkgindex

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// Match is one (package, file) pairing returned by Resolve.
type Match struct {
	Package moduledata.PackageId
	File    string
}

// Index is the package cache index. Initialize populates it by walking the
// configured roots (one goroutine per root); after that it is read-only
// and safe for concurrent Resolve calls.
type Index struct {
	cfg    appconfig.Config
	roots  []string
	logger *utils.VerboseLogger

	mu       sync.RWMutex
	packages map[moduledata.PackageId][]string

	hashes *hashCache
}

// New builds an Index over roots, using cfg for module-extension matching
// and hash-cache configuration.
func New(cfg appconfig.Config, roots []string, logger *utils.VerboseLogger) *Index {
	return &Index{
		cfg:      cfg,
		roots:    roots,
		logger:   logger,
		packages: make(map[moduledata.PackageId][]string),
		hashes:   newHashCache(cfg.Packages.HashCachePath, cfg.Packages.InMemoryCacheLRU),
	}
}

// Initialize walks each root directory in parallel (spec §4.6), populating
// the package map, then loads the persistent hash cache. Missing or
// unreadable roots are tolerated and simply contribute nothing.
func (idx *Index) Initialize(ctx context.Context) error {
	if err := idx.hashes.load(); err != nil && idx.logger != nil {
		idx.logger.DebugLogf("pkgindex: failed to load hash cache: %v\n", err)
	}

	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, root := range idx.roots {
		root := root
		g.Go(func() error {
			found, err := idx.walkRoot(root)
			if err != nil {
				if idx.logger != nil {
					idx.logger.DebugLogf("pkgindex: skipping root %s: %v\n", root, err)
				}
				return nil
			}
			mu.Lock()
			for id, files := range found {
				idx.packages[id] = append(idx.packages[id], files...)
			}
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

// walkRoot enumerates root/<packageName>/<versionDir>/**/*.{ext} per spec
// §4.6: each immediate child is a package directory, each of its immediate
// children whose name starts with a digit and contains '.' is a version
// directory, recursively enumerated for module-extension files.
func (idx *Index) walkRoot(root string) (map[moduledata.PackageId][]string, error) {
	pkgEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	found := make(map[moduledata.PackageId][]string)
	for _, pkgEntry := range pkgEntries {
		if !pkgEntry.IsDir() {
			continue
		}
		pkgDir := filepath.Join(root, pkgEntry.Name())
		versionEntries, err := os.ReadDir(pkgDir)
		if err != nil {
			continue
		}
		for _, verEntry := range versionEntries {
			if !verEntry.IsDir() || !isVersionDirName(verEntry.Name()) {
				continue
			}
			versionDir := filepath.Join(pkgDir, verEntry.Name())
			id := moduledata.PackageId{Name: pkgEntry.Name(), Version: verEntry.Name()}
			files := idx.enumerateModuleFiles(versionDir)
			if len(files) > 0 {
				found[id] = files
			}
		}
	}
	return found, nil
}

func isVersionDirName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] < '0' || name[0] > '9' {
		return false
	}
	return strings.Contains(name, ".")
}

func (idx *Index) enumerateModuleFiles(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if idx.cfg.IsCandidateModule(path) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// Resolve returns every (package, file) match for name, per spec §4.6.
// name is normalized by trimming a trailing module extension. If hash is
// empty, every stem match is included unconditionally; otherwise a file's
// content must MD5-hash (case-insensitive hex) to hash.
func (idx *Index) Resolve(name, hash string) []Match {
	target := strings.ToLower(trimModuleExtension(idx.cfg.Modules.Extensions, name))

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []Match
	for id, files := range idx.packages {
		for _, file := range files {
			stem := strings.ToLower(fileStem(file))
			if stem != target {
				continue
			}
			if hash == "" {
				matches = append(matches, Match{Package: id, File: file})
				continue
			}
			actual, err := idx.hashes.hashOf(file)
			if err != nil {
				continue
			}
			if strings.EqualFold(actual, hash) {
				matches = append(matches, Match{Package: id, File: file})
			}
		}
	}
	return matches
}

// Commit writes the accumulated hash cache back to its persistent
// location (spec §4.6 "on commit, write it back").
func (idx *Index) Commit() error {
	return idx.hashes.save()
}

func trimModuleExtension(extensions []string, name string) string {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
