package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, 30)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_InitializesSchemaVersion(t *testing.T) {
	db := openTestDB(t)
	if err := db.checkSchemaVersion(); err != nil {
		t.Errorf("expected schema version check to pass on fresh database, got %v", err)
	}
}

func TestAppendAndReadPackets(t *testing.T) {
	db := openTestDB(t)

	type samplePacket struct {
		Foo string `json:"foo"`
	}

	if err := db.AppendPacket(time.Now().UTC(), "hash1", samplePacket{Foo: "bar"}); err != nil {
		t.Fatalf("AppendPacket: %v", err)
	}
	if err := db.AppendPacket(time.Now().UTC(), "hash2", samplePacket{Foo: "baz"}); err != nil {
		t.Fatalf("AppendPacket: %v", err)
	}

	entries, err := db.ReadPackets()
	if err != nil {
		t.Fatalf("ReadPackets: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestPruneOldPackets_RemovesEntriesOlderThanRetention(t *testing.T) {
	db := openTestDB(t)

	old := time.Now().UTC().AddDate(0, 0, -60)
	recent := time.Now().UTC()

	if err := db.AppendPacket(old, "old-hash", map[string]string{"age": "old"}); err != nil {
		t.Fatalf("AppendPacket old: %v", err)
	}
	if err := db.AppendPacket(recent, "recent-hash", map[string]string{"age": "recent"}); err != nil {
		t.Fatalf("AppendPacket recent: %v", err)
	}

	deleted, err := db.PruneOldPackets()
	if err != nil {
		t.Fatalf("PruneOldPackets: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned entry, got %d", deleted)
	}

	entries, err := db.ReadPackets()
	if err != nil {
		t.Fatalf("ReadPackets: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 remaining entry, got %d", len(entries))
	}
}

func TestPacketKey_SortsChronologically(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	k1 := string(packetKey(t1, "abcdefghijklmnop"))
	k2 := string(packetKey(t2, "abcdefghijklmnop"))

	if !(k1 < k2) {
		t.Errorf("expected lexicographic key order to match chronological order: %q vs %q", k1, k2)
	}
}
