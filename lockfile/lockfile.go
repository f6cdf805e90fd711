// Package lockfile implements crowdsync.lock, a lock file that tracks the
// resource files purged of vendor additions during an upload. Each record
// keeps the backup location and the MD5 checksum of the pre-purge content,
// so an interrupted upload can be reverted later with `crowdsync revert`.
//
// The lock file is stored alongside .crowdsync.yaml as crowdsync.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "crowdsync.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Purge records one purged resource file.
type Purge struct {
	// Backup is the path of the pre-purge copy, relative to the tree root.
	Backup string `yaml:"backup"`
	// Checksum is the MD5 of the pre-purge content.
	Checksum string `yaml:"checksum"`
	// Config is the Crowdin configuration the purge was made for.
	Config string `yaml:"config,omitempty"`
	// Removed lists the purged resources as "kind/name".
	Removed []string  `yaml:"removed,omitempty"`
	Time    time.Time `yaml:"time"`
}

// LockFile represents the crowdsync.lock file structure.
type LockFile struct {
	Version int              `yaml:"version"`
	Purges  map[string]Purge `yaml:"purges"` // file -> record

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version: Version,
		Purges:  make(map[string]Purge),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Purges == nil {
		lf.Purges = make(map[string]Purge)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}

	return lf, nil
}

// Save writes the lock file to disk. An empty lock file is removed instead.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	if len(lf.Purges) == 0 {
		if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", lf.path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Purge records
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// FileKey normalizes a tree-relative file path for use as a record key.
func FileKey(filePath string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(filePath)), "./")
}

// BackupPath returns the backup location for a purged file.
func BackupPath(filePath string) string {
	return filePath + ".backup"
}

// Record stores a purge of file whose original content was original.
func (lf *LockFile) Record(file, config string, original []byte, removed []string) Purge {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	key := FileKey(file)
	p := Purge{
		Backup:   BackupPath(key),
		Checksum: Hash(original),
		Config:   config,
		Removed:  removed,
		Time:     time.Now().UTC().Truncate(time.Second),
	}
	lf.Purges[key] = p
	return p
}

// Get returns the record for file.
func (lf *LockFile) Get(file string) (Purge, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	p, ok := lf.Purges[FileKey(file)]
	return p, ok
}

// Verify reports whether backup content matches the recorded checksum.
func (lf *LockFile) Verify(file string, backup []byte) bool {
	p, ok := lf.Get(file)
	return ok && p.Checksum == Hash(backup)
}

// Remove drops the record for file.
func (lf *LockFile) Remove(file string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Purges, FileKey(file))
}

// Files returns the sorted list of purged files.
func (lf *LockFile) Files() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	files := make([]string, 0, len(lf.Purges))
	for f := range lf.Purges {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	files := lf.Files()
	if len(files) == 0 {
		return "no pending purges"
	}

	var parts []string
	for _, f := range files {
		p, _ := lf.Get(f)
		parts = append(parts, fmt.Sprintf("%s: %d removed", f, len(p.Removed)))
	}
	return fmt.Sprintf("%d pending purges (%s)", len(files), strings.Join(parts, ", "))
}
