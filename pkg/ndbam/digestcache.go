// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ndbam

import (
	"crypto/sha256"

	"github.com/jmank88/nuts"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// digestBucket holds one key per installed instance, mapping its
// instance directory name to a digest of its contents manifest --
// mirroring internal/gps/source_cache_bolt.go's revision-keyed bucket
// layout (there, a VCS revision's manifest/lock/package-tree data; here,
// an installed instance's contents-manifest digest), but repointed at a
// dedicated per-NDBAM-location database rather than a shared
// process-wide source cache.
var digestBucket = []byte("contents-digest")

// digestCache is a small bbolt database holding each installed
// instance's contents-manifest digest as written at Install time, so
// VerifyContents can tell whether the manifest file has changed since
// (spec DOMAIN STACK: "ndbam package's per-instance contents-digest
// cache").
type digestCache struct {
	db *bolt.DB
}

func openDigestCache(path string) (*digestCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "ndbam: opening digest cache %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(digestBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ndbam: initializing digest cache bucket")
	}
	return &digestCache{db: db}, nil
}

func (c *digestCache) Close() error {
	return errors.Wrap(c.db.Close(), "ndbam: closing digest cache")
}

// instanceKey renders instanceDir as a bolt key: the instance name's byte
// length as a nuts.Key (the compact big-endian encoding nuts's Key/KeyLen
// provide for uint64 keys), followed by the instance name itself.
func instanceKey(instanceDir string) []byte {
	n := uint64(len(instanceDir))
	k := make(nuts.Key, nuts.KeyLen(n))
	k.Put(n)
	return append([]byte(k), instanceDir...)
}

// put records digest as instanceDir's cached contents-manifest digest.
func (c *digestCache) put(instanceDir string, digest [sha256.Size]byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(digestBucket)
		return b.Put(instanceKey(instanceDir), digest[:])
	})
}

// get returns instanceDir's cached digest, if any.
func (c *digestCache) get(instanceDir string) (digest [sha256.Size]byte, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(digestBucket)
		v := b.Get(instanceKey(instanceDir))
		if v == nil {
			return nil
		}
		if len(v) != sha256.Size {
			return errors.Errorf("ndbam: digest cache entry for %q has wrong length %d", instanceDir, len(v))
		}
		copy(digest[:], v)
		ok = true
		return nil
	})
	return digest, ok, err
}

// forget drops instanceDir's cached digest, called from Uninstall so a
// later reused instance-dir name (same version:slot:magic reinstalled)
// never sees a stale entry.
func (c *digestCache) forget(instanceDir string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(digestBucket)
		return b.Delete(instanceKey(instanceDir))
	})
}

// digestManifest hashes a rendered contents manifest's raw bytes, the
// value put/get/VerifyContents all key off.
func digestManifest(contents []byte) [sha256.Size]byte {
	return sha256.Sum256(contents)
}
