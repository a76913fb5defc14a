package metadatanode

import (
	"sync/atomic"

	"github.com/claudefs/claudefs/pkg/cmap"
)

// WatchEventKind discriminates the kinds of filesystem change a watch
// subscriber can observe.
type WatchEventKind int

const (
	WatchCreate WatchEventKind = iota
	WatchDelete
	WatchRename
	WatchAttrChange
	WatchXattrChange
)

// WatchEvent describes one filesystem change notification.
type WatchEvent struct {
	Kind      WatchEventKind
	Parent    uint64
	Name      string
	Ino       uint64
	DstParent uint64
	DstName   string
}

// watchSubscription is one bounded fan-out channel.
type watchSubscription struct {
	id uint64
	ch chan WatchEvent
}

// WatchManager fans out change notifications to bounded subscriber
// channels. A slow subscriber drops the oldest buffered event rather
// than blocking the notifier. The subscriber table is sharded so
// Notify's fan-out doesn't serialize behind Subscribe/Unsubscribe from
// unrelated clients.
type WatchManager struct {
	capacity int
	subs     *cmap.Map[uint64, *watchSubscription]
	nextID   atomic.Uint64
}

// NewWatchManager creates a manager whose subscriber channels buffer
// up to capacity events each.
func NewWatchManager(capacity int) *WatchManager {
	return &WatchManager{capacity: capacity, subs: cmap.New[uint64, *watchSubscription]()}
}

// Subscribe registers a new subscriber and returns its id and receive channel.
func (m *WatchManager) Subscribe() (uint64, <-chan WatchEvent) {
	id := m.nextID.Add(1)
	sub := &watchSubscription{id: id, ch: make(chan WatchEvent, m.capacity)}
	m.subs.Set(id, sub)
	return id, sub.ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (m *WatchManager) Unsubscribe(id uint64) {
	if sub, ok := m.subs.Get(id); ok {
		m.subs.Delete(id)
		close(sub.ch)
	}
}

// Notify delivers evt to every subscriber, dropping the oldest buffered
// event for any subscriber whose channel is full.
func (m *WatchManager) Notify(evt WatchEvent) {
	m.subs.Range(func(_ uint64, sub *watchSubscription) bool {
		select {
		case sub.ch <- evt:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
		}
		return true
	})
}

// WatchCount returns the number of active subscribers.
func (m *WatchManager) WatchCount() int {
	return m.subs.Count()
}
