package stream

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Neumenon/tjson/tjson"
)

// StreamCursor tracks per-SID state for stream processing.
type StreamCursor struct {
	mu sync.RWMutex

	// Per-SID state
	cursors map[uint64]*SIDState
}

// SIDState holds state for a single stream ID.
type SIDState struct {
	SID     uint64
	LastSeq uint64 // Last sequence number seen
	Seen    bool   // Whether any frame arrived yet
	Values  int64  // Value frames accepted
	Ended   bool   // Whether an end frame arrived
}

// NewStreamCursor creates a new stream cursor.
func NewStreamCursor() *StreamCursor {
	return &StreamCursor{
		cursors: make(map[uint64]*SIDState),
	}
}

// Get returns the state for a SID, creating it if needed.
func (sc *StreamCursor) Get(sid uint64) *SIDState {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.getLocked(sid)
}

func (sc *StreamCursor) getLocked(sid uint64) *SIDState {
	state, ok := sc.cursors[sid]
	if !ok {
		state = &SIDState{SID: sid}
		sc.cursors[sid] = state
	}
	return state
}

// GetReadOnly returns a copy of the state for a SID without creating it.
func (sc *StreamCursor) GetReadOnly(sid uint64) (SIDState, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	state, ok := sc.cursors[sid]
	if !ok {
		return SIDState{}, false
	}
	return *state, true
}

// Delete removes state for a SID.
func (sc *StreamCursor) Delete(sid uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.cursors, sid)
}

// AllSIDs returns all tracked SIDs in ascending order.
func (sc *StreamCursor) AllSIDs() []uint64 {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sids := make([]uint64, 0, len(sc.cursors))
	for sid := range sc.cursors {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	return sids
}

// SequenceError reports a frame that arrived out of order.
type SequenceError struct {
	SID      uint64
	Expected uint64
	Got      uint64
}

func (e *SequenceError) Error() string {
	if e.Got < e.Expected {
		return fmt.Sprintf("sid %d: sequence not monotonic: got %d, expected %d", e.SID, e.Got, e.Expected)
	}
	return fmt.Sprintf("sid %d: sequence gap: expected %d, got %d", e.SID, e.Expected, e.Got)
}

// EndedError reports a frame for a SID that already ended.
type EndedError struct {
	SID uint64
	Seq uint64
}

func (e *EndedError) Error() string {
	return fmt.Sprintf("sid %d: frame seq=%d after end", e.SID, e.Seq)
}

// ProcessFrame processes a frame and updates cursor state.
// Returns an error if:
//   - The SID already ended
//   - Sequence number is not LastSeq+1 (gap or duplicate)
//
// The first frame of a SID may carry any sequence number.
func (sc *StreamCursor) ProcessFrame(frame *Frame) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	state := sc.getLocked(frame.SID)
	if state.Ended {
		return &EndedError{SID: frame.SID, Seq: frame.Seq}
	}
	if state.Seen && frame.Seq != state.LastSeq+1 {
		return &SequenceError{SID: frame.SID, Expected: state.LastSeq + 1, Got: frame.Seq}
	}

	state.LastSeq = frame.Seq
	state.Seen = true
	switch frame.Kind {
	case KindValue:
		state.Values++
	case KindEnd:
		state.Ended = true
	}
	return nil
}

// ============================================================
// Frame Handler - functional processing helper
// ============================================================

// FrameHandler decodes frames and dispatches them by kind, with
// per-SID sequence tracking.
type FrameHandler struct {
	Cursor *StreamCursor
	Reader *Reader // Decodes payloads; a default Reader is used if nil

	// Callbacks (optional)
	OnValue func(sid, seq uint64, v *tjson.Value) error
	OnErr   func(sid, seq uint64, remote *RemoteError) error
	OnEnd   func(sid uint64, state SIDState) error

	// Called on a sequence gap. Returning nil accepts the frame;
	// without a callback gaps are errors.
	OnSeqGap func(sid uint64, expected, got uint64) error
}

// NewFrameHandler creates a handler with default cursor.
func NewFrameHandler() *FrameHandler {
	return &FrameHandler{
		Cursor: NewStreamCursor(),
	}
}

// Handle processes a frame and calls the appropriate callback.
// Duplicate frames (seq at or below the last seen) are skipped.
func (h *FrameHandler) Handle(frame *Frame) error {
	if h.Cursor == nil {
		h.Cursor = NewStreamCursor()
	}
	if h.Reader == nil {
		h.Reader = NewReader(nil)
	}

	if err := h.Cursor.ProcessFrame(frame); err != nil {
		seqErr, ok := err.(*SequenceError)
		if !ok {
			return err
		}
		if seqErr.Got < seqErr.Expected {
			// Duplicate or out of order - skip
			return nil
		}
		if h.OnSeqGap == nil {
			return err
		}
		if err := h.OnSeqGap(frame.SID, seqErr.Expected, seqErr.Got); err != nil {
			return err
		}
		h.resync(frame)
	}

	var v *tjson.Value
	if len(frame.Payload) > 0 {
		var err error
		v, err = h.Reader.Decode(frame)
		if err != nil {
			return err
		}
	}

	switch frame.Kind {
	case KindValue:
		if v == nil {
			return fmt.Errorf("sid %d: value frame seq=%d has no payload", frame.SID, frame.Seq)
		}
		if h.OnValue != nil {
			return h.OnValue(frame.SID, frame.Seq, v)
		}
	case KindErr:
		if h.OnErr != nil {
			remote := &RemoteError{Message: "unspecified error"}
			if v != nil {
				var err error
				remote, err = ErrorFromValue(v)
				if err != nil {
					return err
				}
			}
			return h.OnErr(frame.SID, frame.Seq, remote)
		}
	case KindEnd:
		state, _ := h.Cursor.GetReadOnly(frame.SID)
		if v != nil {
			count, err := EndCount(v)
			if err != nil {
				return err
			}
			if count != state.Values {
				return fmt.Errorf("sid %d: end frame reports %d values, received %d", frame.SID, count, state.Values)
			}
		}
		if h.OnEnd != nil {
			return h.OnEnd(frame.SID, state)
		}
	}
	return nil
}

// resync accepts frame after an acknowledged gap.
func (h *FrameHandler) resync(frame *Frame) {
	h.Cursor.mu.Lock()
	defer h.Cursor.mu.Unlock()

	state := h.Cursor.getLocked(frame.SID)
	state.LastSeq = frame.Seq
	state.Seen = true
	switch frame.Kind {
	case KindValue:
		state.Values++
	case KindEnd:
		state.Ended = true
	}
}
