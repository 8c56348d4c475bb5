// Package storage — bolt.go
//
// BoltDB-backed audit ledger for decision packets.
//
// Schema (BoltDB bucket layout):
//
//	/packets
//	    key:   fixed-width RFC3339 UTC timestamp (9-digit nanoseconds) +
//	           "_" + state_hash[:16]  [sortable]
//	    value: JSON-encoded decision packet
//
//	/meta
//	    key:   "schema_version"
//	    value: "2"
//
// Consistency model:
//   - Single-process, single-writer (BoltDB does not support concurrent
//     writers).
//   - All writes use ACID transactions (bbolt Tx.Commit()).
//   - Reads use read-only transactions (bbolt.View()).
//   - CRC32 integrity check on database open (bbolt built-in).
//
// Retention:
//   - Packets older than RetentionDays are pruned on startup and by the
//     caller's periodic retention call; nothing here starts its own
//     goroutine, since the pipeline is embedded rather than a standalone
//     daemon by default.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// SchemaVersion is the current database schema version.
	SchemaVersion = "2"

	// DefaultRetentionDays is the default packet retention period.
	DefaultRetentionDays = 30

	bucketPackets = "packets"
	bucketMeta    = "meta"
)

// DB wraps a BoltDB instance with typed accessors for decision packets.
type DB struct {
	db            *bolt.DB
	retentionDays int
}

// Open opens (or creates) the BoltDB database at the given path,
// initializing all required buckets and verifying the schema version.
func Open(path string, retentionDays int) (*DB, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	bdb, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:      5 * time.Second,
		FreelistType: bolt.FreelistArrayType,
	})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open(%q): %w", path, err)
	}

	d := &DB{db: bdb, retentionDays: retentionDays}

	if err := d.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketPackets, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("CreateBucketIfNotExists(%q): %w", name, err)
			}
		}
		meta := tx.Bucket([]byte(bucketMeta))
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(SchemaVersion)); err != nil {
				return fmt.Errorf("write schema_version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("database initialisation failed: %w", err)
	}

	if err := d.checkSchemaVersion(); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	return d, nil
}

func (d *DB) checkSchemaVersion() error {
	return d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		v := meta.Get([]byte("schema_version"))
		if string(v) != SchemaVersion {
			return fmt.Errorf(
				"schema version mismatch: database has %q, engine requires %q; "+
					"run migration or restore from backup",
				string(v), SchemaVersion,
			)
		}
		return nil
	})
}

// Close closes the underlying BoltDB file.
func (d *DB) Close() error {
	return d.db.Close()
}

// packetKey builds a sortable key from a timestamp and state hash;
// lexicographic order matches chronological order.
func packetKey(t time.Time, stateHash string) []byte {
	prefix := stateHash
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	// Fixed-width nanoseconds: RFC3339Nano trims trailing zeros, which
	// would break lexicographic ordering.
	return []byte(fmt.Sprintf("%s_%s", t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), prefix))
}

// AppendPacket writes one decision packet to the ledger under an
// ACID transaction. packet is marshaled as-is (callers pass
// packet.Packet, kept as `any` here to avoid storage depending on the
// packet package).
func (d *DB) AppendPacket(t time.Time, stateHash string, pkt any) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	data, err := json.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("AppendPacket marshal: %w", err)
	}
	key := packetKey(t, stateHash)
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPackets))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("AppendPacket bolt.Put: %w", err)
		}
		return nil
	})
}

// PruneOldPackets deletes packets older than retentionDays, returning
// the number of entries deleted.
func (d *DB) PruneOldPackets() (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -d.retentionDays)
	cutoffKey := packetKey(cutoff, "")

	var deleted int
	err := d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPackets))
		c := b.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if string(k) >= string(cutoffKey) {
				break
			}
			keyCopy := make([]byte, len(k))
			copy(keyCopy, k)
			toDelete = append(toDelete, keyCopy)
		}
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("PruneOldPackets delete: %w", err)
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// ReadPackets returns every raw packet JSON blob in chronological order.
// For operational/CLI inspection; not called on the hot path.
func (d *DB) ReadPackets() ([]json.RawMessage, error) {
	var entries []json.RawMessage
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPackets))
		return b.ForEach(func(_, v []byte) error {
			cp := make(json.RawMessage, len(v))
			copy(cp, v)
			entries = append(entries, cp)
			return nil
		})
	})
	return entries, err
}
