package avdtp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmenterSingleFitsInOnePacket(t *testing.T) {
	f := newFragmenter(48)
	frags := f.fragments(3, MsgTypeCmd, SigOpen, EncodeSingleSEID(5))
	require.Len(t, frags, 1)

	label, pkt, msgType := decodeHeaderByte(frags[0][0])
	require.Equal(t, byte(3), label)
	require.Equal(t, PktTypeSingle, pkt)
	require.Equal(t, MsgTypeCmd, msgType)
}

func TestFragmenterAndReassemblerRoundTripOversizedMessage(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 200)
	f := newFragmenter(20) // forces START/CONT/.../END fragmentation
	frags := f.fragments(1, MsgTypeCmd, SigSetConfig, body)
	require.Greater(t, len(frags), 2)

	var r reassembler
	var got *reassembledMessage
	for i, frag := range frags {
		msg, complete, err := r.feed(frag)
		require.NoError(t, err)
		if i < len(frags)-1 {
			require.False(t, complete)
		} else {
			require.True(t, complete)
			got = msg
		}
	}
	require.Equal(t, SigSetConfig, got.Signal)
	require.Equal(t, MsgTypeCmd, got.MsgType)
	require.Equal(t, body, got.Body)
}

func TestReassemblerDropsOutOfOrderContinuation(t *testing.T) {
	var r reassembler
	cont := encodeHeaderContOrEnd(1, MsgTypeCmd, PktTypeCont)
	cont = append(cont, 0x01, 0x02)
	_, complete, err := r.feed(cont)
	require.NoError(t, err)
	require.False(t, complete)
}

func TestReassemblerDiscardsInProgressMessageOnSinglePacket(t *testing.T) {
	var r reassembler
	f := newFragmenter(12)
	first := f.fragments(1, MsgTypeCmd, SigSetConfig, bytes.Repeat([]byte{0x01}, 50))
	_, complete, err := r.feed(first[0])
	require.NoError(t, err)
	require.False(t, complete)
	require.True(t, r.inProgress)

	second := f.fragments(2, MsgTypeCmd, SigOpen, EncodeSingleSEID(9))
	msg, complete, err := r.feed(second[0])
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, SigOpen, msg.Signal)
	require.False(t, r.inProgress)
}

func TestReassemblerRecognizesGeneralReject(t *testing.T) {
	var r reassembler
	pkt := []byte{(4&0x0F)<<4 | byte(PktTypeSingle)<<2 | byte(MsgTypeRej)}
	msg, complete, err := r.feed(pkt)
	require.NoError(t, err)
	require.True(t, complete)
	require.Equal(t, MsgTypeRej, msg.MsgType)
	require.Equal(t, Signal(0), msg.Signal)
	require.Nil(t, msg.Body)
}

func TestReassemblerRejectsHeaderOnlySingleThatIsNotGeneralReject(t *testing.T) {
	var r reassembler
	pkt := []byte{(4&0x0F)<<4 | byte(PktTypeSingle)<<2 | byte(MsgTypeCmd)}
	_, _, err := r.feed(pkt)
	require.Error(t, err)
}
