// Package queue implements an in-memory urgency-ordered priority queue
// for tickets awaiting assignment, with a crash-safe JSON snapshot so a
// restart doesn't lose queued work.
package queue

import (
	"container/heap"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-logr/logr"

	"github.com/jordigilh/triagex/pkg/domain"
	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

// item is one heap entry. Highest urgency first; among equal urgencies,
// lowest seq (earliest enqueued) first, giving FIFO order within a
// priority band.
type item struct {
	Ticket domain.Ticket `json:"ticket"`
	Seq    uint64        `json:"seq"`
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Ticket.Urgency != h[j].Ticket.Urgency {
		return h[i].Ticket.Urgency > h[j].Ticket.Urgency
	}
	return h[i].Seq < h[j].Seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(*item))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	popped := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return popped
}

// Queue is a mutex-guarded min-heap of tickets ordered by descending
// urgency, with a next sequence counter for stable FIFO tiebreaking.
// Every mutation is followed by an atomic snapshot write so a crash
// between mutations never loses or reorders queued tickets.
type Queue struct {
	mu           sync.Mutex
	heap         itemHeap
	nextSeq      uint64
	snapshotPath string
	log          logr.Logger
}

type snapshot struct {
	Items   []*item `json:"items"`
	NextSeq uint64  `json:"next_seq"`
}

// New builds a Queue, loading any existing snapshot at snapshotPath. A
// missing or corrupt snapshot file starts the queue empty rather than
// failing — losing a snapshot is recoverable, refusing to start is not.
func New(snapshotPath string, log logr.Logger) *Queue {
	q := &Queue{snapshotPath: snapshotPath, log: log}
	q.load()
	return q
}

func (q *Queue) load() {
	if q.snapshotPath == "" {
		return
	}
	data, err := os.ReadFile(q.snapshotPath)
	if err != nil {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		q.log.Info("discarding corrupt queue snapshot", "path", q.snapshotPath, "error", err.Error())
		return
	}
	q.heap = itemHeap(snap.Items)
	q.nextSeq = snap.NextSeq
	heap.Init(&q.heap)
}

// Enqueue adds a ticket to the queue and persists a snapshot.
func (q *Queue) Enqueue(ticket domain.Ticket) error {
	q.mu.Lock()
	it := &item{Ticket: ticket, Seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.heap, it)
	q.mu.Unlock()

	return q.snapshot()
}

// Dequeue removes and returns the highest-urgency ticket, or false if the
// queue is empty.
func (q *Queue) Dequeue() (domain.Ticket, bool, error) {
	q.mu.Lock()
	if q.heap.Len() == 0 {
		q.mu.Unlock()
		return domain.Ticket{}, false, nil
	}
	it := heap.Pop(&q.heap).(*item)
	q.mu.Unlock()

	if err := q.snapshot(); err != nil {
		return it.Ticket, true, err
	}
	return it.Ticket, true, nil
}

// Peek returns up to limit tickets in priority order without removing
// them from the queue.
func (q *Queue) Peek(limit int) []domain.Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Sort a copy; the live heap's internal array order must not change.
	sortedItems := make([]*item, len(q.heap))
	copy(sortedItems, q.heap)
	insertionSortByPriority(sortedItems)

	if limit > 0 && limit < len(sortedItems) {
		sortedItems = sortedItems[:limit]
	}

	tickets := make([]domain.Ticket, len(sortedItems))
	for i, it := range sortedItems {
		tickets[i] = it.Ticket
	}
	return tickets
}

// Size returns the current queue depth.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// insertionSortByPriority orders items by the same rule as itemHeap.Less
// (descending urgency, ascending seq). Peek sorts a copy of the whole heap
// and applies its limit afterwards; insertion sort is fine here because the
// queue is not expected to hold more than a few hundred tickets at once.
func insertionSortByPriority(items []*item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func less(a, b *item) bool {
	if a.Ticket.Urgency != b.Ticket.Urgency {
		return a.Ticket.Urgency > b.Ticket.Urgency
	}
	return a.Seq < b.Seq
}

// snapshot writes the current queue state to snapshotPath via a
// write-then-rename so a crash mid-write never leaves a truncated file
// behind.
func (q *Queue) snapshot() error {
	if q.snapshotPath == "" {
		return nil
	}

	// Held through the write and rename so concurrent snapshots never share
	// the temp file and the last rename always carries the newest state.
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]*item, len(q.heap))
	copy(items, q.heap)
	snap := snapshot{Items: items, NextSeq: q.nextSeq}

	data, err := json.Marshal(snap)
	if err != nil {
		return triageerrors.FailedToWithDetails("marshal queue snapshot", "queue", q.snapshotPath, err)
	}

	tmp := q.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return triageerrors.FailedToWithDetails("write queue snapshot", "queue", tmp, errors.Wrap(err, "write temp snapshot file"))
	}
	if err := os.Rename(tmp, q.snapshotPath); err != nil {
		return triageerrors.FailedToWithDetails("rename queue snapshot into place", "queue", q.snapshotPath, errors.Wrap(err, "rename temp snapshot into place"))
	}
	return nil
}

// EnsureDir creates the parent directory of snapshotPath if needed.
func EnsureDir(snapshotPath string) error {
	dir := filepath.Dir(snapshotPath)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
