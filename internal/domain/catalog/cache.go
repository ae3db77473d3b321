package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
)

// cacheFile is the on-disk cache layout: the product list plus the time it was
// fetched, gzip-compressed. The catalog is the largest payload the client
// holds, so it is worth compressing.
type cacheFile struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Products  []Product `json:"products"`
}

// writeCache atomically replaces the cache file at path.
func writeCache(path string, products []Product) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create cache dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	zw := pgzip.NewWriter(tmp)
	enc := json.NewEncoder(zw)
	if err := enc.Encode(cacheFile{FetchedAt: time.Now(), Products: products}); err != nil {
		zw.Close()
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "encode cache")
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "close gzip writer")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace cache")
	}
	return nil
}

// readCache loads the cache file at path.
func readCache(path string) ([]Product, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "open cache")
	}
	defer f.Close()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "open gzip reader")
	}
	defer zr.Close()

	var cf cacheFile
	if err := json.NewDecoder(zr).Decode(&cf); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "decode cache")
	}
	return cf.Products, cf.FetchedAt, nil
}
