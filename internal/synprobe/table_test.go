package synprobe

import "testing"

func TestTableInsertLookup(t *testing.T) {
	tbl := NewTable(4)
	obs := SynObservation{SrcAddr: 0x0a000005, SrcPort: 443, TCPWindow: 65535, IPTTL: 64, Tick: 1}
	tbl.Insert(obs)

	got, ok := tbl.Lookup(0x0a000005, 443)
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if got.TCPWindow != 65535 || got.IPTTL != 64 {
		t.Fatalf("got %+v", got)
	}
}

func TestTableLookupMiss(t *testing.T) {
	tbl := NewTable(4)
	if _, ok := tbl.Lookup(1, 2); ok {
		t.Fatal("expected miss on empty table")
	}
}

func TestTableEvictsOldestFirst(t *testing.T) {
	tbl := NewTable(2)
	tbl.Insert(SynObservation{SrcAddr: 1, SrcPort: 1})
	tbl.Insert(SynObservation{SrcAddr: 2, SrcPort: 2})
	tbl.Insert(SynObservation{SrcAddr: 3, SrcPort: 3})

	if tbl.Len() != 2 {
		t.Fatalf("got len %d, want 2", tbl.Len())
	}
	if _, ok := tbl.Lookup(1, 1); ok {
		t.Fatal("expected the oldest entry to have been evicted")
	}
	if _, ok := tbl.Lookup(3, 3); !ok {
		t.Fatal("expected the newest entry to survive")
	}
}

func TestTableLookupValidatesPortAgainstKey(t *testing.T) {
	tbl := NewTable(4)
	tbl.Insert(SynObservation{SrcAddr: 7, SrcPort: 9})

	// Querying the same key-producing (addr,port) pair as stored succeeds.
	if _, ok := tbl.Lookup(7, 9); !ok {
		t.Fatal("expected hit")
	}

	// A key collision where the stored record's port disagrees with the
	// queried port must be discarded, never handed back as a stale match.
	corrupted := tbl.items[Key(7, 9)].Value.(*entry)
	corrupted.value.SrcPort = 1234
	if _, ok := tbl.Lookup(7, 9); ok {
		t.Fatal("expected mismatch to be discarded")
	}
}

func TestKeyLayout(t *testing.T) {
	got := Key(0x0a000005, 0x01bb)
	want := (uint64(0x0a000005) << 16) | 0x01bb
	if got != want {
		t.Fatalf("got %x, want %x", got, want)
	}
}
