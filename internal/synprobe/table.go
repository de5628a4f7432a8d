package synprobe

import (
	"container/list"
	"sync"
)

// Table is the bounded LRU store keyed by the SYN tuple, capped at
// TableCapacity entries with oldest-first eviction (spec.md §3). The
// userspace libpcap capturer writes into a Table; the connection
// orchestrator only ever reads.
type Table struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element
}

type entry struct {
	key   uint64
	value SynObservation
}

// NewTable returns an empty table with the given capacity. Capacity <= 0
// defaults to TableCapacity.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = TableCapacity
	}
	return &Table{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

// Insert records obs under its key, evicting the oldest entry if the table
// is at capacity. Re-inserting an existing key refreshes its recency.
func (t *Table) Insert(obs SynObservation) {
	key := obs.Key()
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.items[key]; ok {
		el.Value.(*entry).value = obs
		t.ll.MoveToFront(el)
		return
	}

	el := t.ll.PushFront(&entry{key: key, value: obs})
	t.items[key] = el

	if t.ll.Len() > t.capacity {
		oldest := t.ll.Back()
		if oldest != nil {
			t.ll.Remove(oldest)
			delete(t.items, oldest.Value.(*entry).key)
		}
	}
}

// Lookup returns a snapshot of the entry for (srcIPv4NetworkOrder,
// srcPortNetworkOrder) if present. The returned observation's SrcPort is
// validated against the queried port to guard against a torn write or a
// hash collision surviving eviction races; on mismatch the entry is
// discarded and ok is false. Lookup never deletes — the entry is left to
// age out through normal LRU eviction.
func (t *Table) Lookup(srcAddrNetworkOrder uint32, srcPortNetworkOrder uint16) (SynObservation, bool) {
	key := Key(srcAddrNetworkOrder, srcPortNetworkOrder)

	t.mu.Lock()
	el, ok := t.items[key]
	var obs SynObservation
	if ok {
		obs = el.Value.(*entry).value
	}
	t.mu.Unlock()

	if !ok {
		return SynObservation{}, false
	}
	if obs.SrcPort != srcPortNetworkOrder {
		return SynObservation{}, false
	}
	return obs, true
}

// Len returns the current number of entries, for tests and metrics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ll.Len()
}
