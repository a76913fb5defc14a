package metadatanode

import (
	"sync/atomic"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/pkg/cmap"
)

// CdcEvent is one change-data-capture tuple published for external
// tailers. The journal remains the durable log; this stream is the
// live tap.
type CdcEvent struct {
	Op     domain.MetaOp
	SiteID string
	Seq    uint64
}

// CdcStream is a bounded FIFO broadcasting published events to every
// live subscriber channel, dropping the oldest entry for a subscriber
// whose channel is full rather than blocking the publisher. The
// subscriber table is sharded so Publish's fan-out doesn't serialize
// behind Subscribe/Unsubscribe from unrelated tailers.
type CdcStream struct {
	nextSeq atomic.Uint64
	nextSub atomic.Uint64
	subs    *cmap.Map[uint64, chan CdcEvent]
	cap     int
}

// NewCdcStream creates a stream whose subscriber channels buffer up to
// capacity events each.
func NewCdcStream(capacity int) *CdcStream {
	return &CdcStream{subs: cmap.New[uint64, chan CdcEvent](), cap: capacity}
}

// Publish assigns the next sequence number to op and delivers it to
// every subscriber.
func (s *CdcStream) Publish(op domain.MetaOp, siteID string) CdcEvent {
	evt := CdcEvent{Op: op, SiteID: siteID, Seq: s.nextSeq.Add(1)}
	s.subs.Range(func(_ uint64, ch chan CdcEvent) bool {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
		return true
	})
	return evt
}

// Subscribe registers a new tailer and returns its receive channel and
// unsubscribe id.
func (s *CdcStream) Subscribe() (uint64, <-chan CdcEvent) {
	id := s.nextSub.Add(1)
	ch := make(chan CdcEvent, s.cap)
	s.subs.Set(id, ch)
	return id, ch
}

// Unsubscribe removes and closes a tailer's channel.
func (s *CdcStream) Unsubscribe(id uint64) {
	if ch, ok := s.subs.Get(id); ok {
		s.subs.Delete(id)
		close(ch)
	}
}
