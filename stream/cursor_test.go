package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/tjson/tjson"
	"github.com/Neumenon/tjson/transcode"
)

func TestStreamCursor_Basic(t *testing.T) {
	cursor := NewStreamCursor()

	// Get creates state
	state := cursor.Get(1)
	require.NotNil(t, state)
	assert.Equal(t, uint64(1), state.SID)
	assert.False(t, state.Seen)

	// GetReadOnly does not create
	_, ok := cursor.GetReadOnly(99)
	assert.False(t, ok)

	cursor.Get(3)
	cursor.Get(2)
	assert.Equal(t, []uint64{1, 2, 3}, cursor.AllSIDs())

	cursor.Delete(2)
	_, ok = cursor.GetReadOnly(2)
	assert.False(t, ok)
}

func TestStreamCursor_ProcessFrame(t *testing.T) {
	cursor := NewStreamCursor()

	// The first frame may start anywhere
	require.NoError(t, cursor.ProcessFrame(&Frame{SID: 1, Seq: 4, Kind: KindValue}))
	require.NoError(t, cursor.ProcessFrame(&Frame{SID: 1, Seq: 5, Kind: KindValue}))

	state, ok := cursor.GetReadOnly(1)
	require.True(t, ok)
	assert.Equal(t, uint64(5), state.LastSeq)
	assert.Equal(t, int64(2), state.Values)

	// Gap
	var seqErr *SequenceError
	err := cursor.ProcessFrame(&Frame{SID: 1, Seq: 8, Kind: KindValue})
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, uint64(6), seqErr.Expected)
	assert.Contains(t, err.Error(), "gap")

	// Duplicate
	err = cursor.ProcessFrame(&Frame{SID: 1, Seq: 5, Kind: KindValue})
	require.ErrorAs(t, err, &seqErr)
	assert.Contains(t, err.Error(), "not monotonic")

	// Other SIDs are independent
	require.NoError(t, cursor.ProcessFrame(&Frame{SID: 2, Seq: 0, Kind: KindValue}))

	// End closes the SID
	require.NoError(t, cursor.ProcessFrame(&Frame{SID: 1, Seq: 6, Kind: KindEnd}))
	state, _ = cursor.GetReadOnly(1)
	assert.True(t, state.Ended)

	var endedErr *EndedError
	err = cursor.ProcessFrame(&Frame{SID: 1, Seq: 7, Kind: KindValue})
	require.ErrorAs(t, err, &endedErr)
}

// ============================================================
// FrameHandler
// ============================================================

func framesOf(t *testing.T, write func(w *Writer)) []*Frame {
	t.Helper()
	var buf bytes.Buffer
	write(NewWriter(&buf, WithCodec(transcode.CBOR{}), WithCRC()))
	frames, err := NewReader(&buf).ReadAll()
	require.NoError(t, err)
	return frames
}

func TestFrameHandler_Dispatch(t *testing.T) {
	frames := framesOf(t, func(w *Writer) {
		require.NoError(t, w.WriteValue(1, 0, tjson.Int(1)))
		require.NoError(t, w.WriteValue(2, 0, tjson.Str("other")))
		require.NoError(t, w.WriteValue(1, 1, tjson.Int(2)))
		require.NoError(t, w.WriteEnd(1, 2, 2))
	})

	var got []int64
	var strings []string
	var ended SIDState
	h := NewFrameHandler()
	h.OnValue = func(sid, seq uint64, v *tjson.Value) error {
		if sid == 2 {
			s, err := v.AsStr()
			strings = append(strings, s)
			return err
		}
		n, err := v.AsInt()
		got = append(got, n)
		return err
	}
	h.OnEnd = func(sid uint64, state SIDState) error {
		ended = state
		return nil
	}

	for _, f := range frames {
		require.NoError(t, h.Handle(f))
	}
	assert.Equal(t, []int64{1, 2}, got)
	assert.Equal(t, []string{"other"}, strings)
	assert.True(t, ended.Ended)
	assert.Equal(t, int64(2), ended.Values)
}

func TestFrameHandler_SkipsDuplicates(t *testing.T) {
	frames := framesOf(t, func(w *Writer) {
		require.NoError(t, w.WriteValue(1, 0, tjson.Int(1)))
	})

	calls := 0
	h := NewFrameHandler()
	h.OnValue = func(uint64, uint64, *tjson.Value) error {
		calls++
		return nil
	}
	require.NoError(t, h.Handle(frames[0]))
	require.NoError(t, h.Handle(frames[0]))
	assert.Equal(t, 1, calls)
}

func TestFrameHandler_Gap(t *testing.T) {
	frames := framesOf(t, func(w *Writer) {
		require.NoError(t, w.WriteValue(1, 0, tjson.Int(1)))
		require.NoError(t, w.WriteValue(1, 3, tjson.Int(4)))
	})

	h := NewFrameHandler()
	require.NoError(t, h.Handle(frames[0]))
	var seqErr *SequenceError
	require.ErrorAs(t, h.Handle(frames[1]), &seqErr)

	// Accepting the gap resumes from the new sequence
	var gaps [][2]uint64
	h = NewFrameHandler()
	h.OnSeqGap = func(sid uint64, expected, got uint64) error {
		gaps = append(gaps, [2]uint64{expected, got})
		return nil
	}
	require.NoError(t, h.Handle(frames[0]))
	require.NoError(t, h.Handle(frames[1]))
	assert.Equal(t, [][2]uint64{{1, 3}}, gaps)

	state, _ := h.Cursor.GetReadOnly(1)
	assert.Equal(t, uint64(3), state.LastSeq)
	assert.Equal(t, int64(2), state.Values)
}

func TestFrameHandler_EndCountMismatch(t *testing.T) {
	frames := framesOf(t, func(w *Writer) {
		require.NoError(t, w.WriteValue(1, 0, tjson.Int(1)))
		require.NoError(t, w.WriteEnd(1, 1, 5))
	})

	h := NewFrameHandler()
	require.NoError(t, h.Handle(frames[0]))
	err := h.Handle(frames[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reports 5 values, received 1")
}

func TestFrameHandler_Err(t *testing.T) {
	_, decodeErr := tjson.Unmarshal([]byte(`{"$type":"List","_value":[{"$type":"Integer","_value":"x"}]}`))
	require.Error(t, decodeErr)

	frames := framesOf(t, func(w *Writer) {
		require.NoError(t, w.WriteErr(1, 0, decodeErr))
	})

	var remote *RemoteError
	h := NewFrameHandler()
	h.OnErr = func(sid, seq uint64, re *RemoteError) error {
		remote = re
		return nil
	}
	require.NoError(t, h.Handle(frames[0]))
	require.NotNil(t, remote)
	assert.Equal(t, tjson.ErrInvalidIntegerLiteral.Error(), remote.Kind)
	assert.Equal(t, "/_value/0/_value", remote.Path)
	assert.Equal(t, decodeErr.Error(), remote.Message)
	assert.Contains(t, remote.Error(), "(at /_value/0/_value)")
}

func TestFrameHandler_EmptyValueFrame(t *testing.T) {
	h := NewFrameHandler()
	err := h.Handle(&Frame{SID: 1, Seq: 0, Kind: KindValue, Encoding: "json"})
	assert.Error(t, err)
}
