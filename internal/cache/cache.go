// Package cache implements the naive disk-based stream-info cache.
//
// Invalidation is based on the file naming convention
// {expire-epoch}~{key}: an item is valid while the wall clock has not
// passed its expire epoch. In the playback context the key is a video ID
// and the epoch comes from the segment base URLs' expire field. Writes
// go through a temporary file and rename, so concurrent readers either
// see the old item or the new one, never a torn write.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrItemNotFound is returned when no unexpired cached item exists for a
// key.
var ErrItemNotFound = errors.New("unexpired cached item doesn't exist for the video")

// Item is a cached stream-info record.
type Item struct {
	Info    json.RawMessage `json:"info"`
	Streams json.RawMessage `json:"streams"`
}

func itemPaths(dir, key string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*~"+key))
	if err != nil {
		return nil, fmt.Errorf("scanning cache directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// expiresAt parses the expire epoch from an item filename.
func expiresAt(name string) (time.Time, bool) {
	rawEpoch, _, found := strings.Cut(filepath.Base(name), "~")
	if !found {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(rawEpoch, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0), true
}

func isExpired(name string, now time.Time) bool {
	expiry, ok := expiresAt(name)
	if !ok {
		return true
	}
	return !now.Before(expiry)
}

// Read returns the unexpired cached item for a key, removing stale
// entries for the same key along the way. ErrItemNotFound is returned
// when nothing usable exists.
func Read(dir, key string, now time.Time) (*Item, error) {
	paths, err := itemPaths(dir, key)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrItemNotFound
	}

	latest := paths[len(paths)-1]
	for _, earlier := range paths[:len(paths)-1] {
		os.Remove(earlier)
	}

	if isExpired(latest, now) {
		os.Remove(latest)
		return nil, ErrItemNotFound
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("reading cached item: %w", err)
	}
	var item Item
	if err := json.Unmarshal(content, &item); err != nil {
		return nil, fmt.Errorf("decoding cached item: %w", err)
	}
	return &item, nil
}

// Write stores an item for a key, replacing any existing entries for the
// same key. The write is atomic with respect to concurrent readers.
func Write(dir, key string, expireEpoch int64, item *Item) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	old, err := itemPaths(dir, key)
	if err != nil {
		return err
	}
	for _, path := range old {
		os.Remove(path)
	}

	content, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding cache item: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-write*")
	if err != nil {
		return fmt.Errorf("creating cache item: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache item: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache item: %w", err)
	}

	target := filepath.Join(dir, fmt.Sprintf("%d~%s", expireEpoch, key))
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("publishing cache item: %w", err)
	}
	return nil
}

// RemoveExpired garbage-collects expired items for all keys.
func RemoveExpired(dir string, now time.Time) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*~*"))
	if err != nil {
		return fmt.Errorf("scanning cache directory: %w", err)
	}
	for _, path := range paths {
		if isExpired(path, now) {
			os.Remove(path)
		}
	}
	return nil
}
