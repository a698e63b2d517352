package avdtp

// maxReassemblySize bounds the in-progress reassembly buffer, standing in
// for the fixed-size pool buffer (BT_DEFAULT_BUFFER_SIZE) the teacher's
// avdt_msg_asmbl allocates from; CONT/END fragments that would overflow it
// abort the in-progress message the same way the original's capacity check
// does.
const maxReassemblySize = 4096

// fragmenter turns one signaling message into the wire fragments §4.2
// describes, grounded on avdt_msg_send's state machine (SINGLE vs
// START/CONT/END chosen from what's left to send and the peer MTU).
type fragmenter struct {
	peerMTU int
}

func newFragmenter(peerMTU int) *fragmenter {
	if peerMTU < 4 {
		peerMTU = 4
	}
	return &fragmenter{peerMTU: peerMTU}
}

// fragments returns the ordered wire fragments for one signaling message.
func (f *fragmenter) fragments(label byte, msgType MsgType, sig Signal, body []byte) [][]byte {
	if len(body) <= f.peerMTU-2 {
		return [][]byte{append(encodeHeaderSingle(label, msgType, sig), body...)}
	}

	startCap := f.peerMTU - 3
	nosp := ceilDiv(len(body)+1, f.peerMTU-1) + 1

	frags := [][]byte{append(encodeHeaderStart(label, msgType, byte(nosp), sig), body[:startCap]...)}
	rem := body[startCap:]

	contCap := f.peerMTU - 1
	for len(rem) > contCap {
		frags = append(frags, append(encodeHeaderContOrEnd(label, msgType, PktTypeCont), rem[:contCap]...))
		rem = rem[contCap:]
	}
	frags = append(frags, append(encodeHeaderContOrEnd(label, msgType, PktTypeEnd), rem...))
	return frags
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// reassembler accumulates inbound fragments into one signaling message,
// grounded on avdt_msg_asmbl. One reassembler exists per CCB signaling
// channel (fragmentation never interleaves across channels).
type reassembler struct {
	inProgress bool
	label      byte
	msgType    MsgType
	sig        Signal
	buf        []byte
}

// reassembledMessage is what Feed returns once a complete message has
// been collected (possibly immediately, for a SINGLE packet).
type reassembledMessage struct {
	Label   byte
	MsgType MsgType
	Signal  Signal
	Body    []byte
}

// feed processes one inbound fragment. It returns (msg, true, nil) once a
// full message is available, (nil, false, nil) if raw was consumed but
// reassembly is still in progress or the fragment was dropped, or a
// non-nil error for a fragment too short to contain a valid header.
func (r *reassembler) feed(raw []byte) (*reassembledMessage, bool, error) {
	if len(raw) < 1 {
		return nil, false, malformed(ErrBadLength, "empty signaling fragment")
	}
	label, pkt, msgType := decodeHeaderByte(raw[0])
	if len(raw) < pktTypeMinLen[pkt] {
		return nil, false, malformed(ErrBadLength, "fragment shorter than packet-type minimum")
	}

	switch pkt {
	case PktTypeSingle:
		r.reset()
		if len(raw) == 1 {
			if msgType != MsgTypeRej {
				return nil, false, malformed(ErrBadLength, "single packet missing signal id")
			}
			// General Reject: header only, no signal id on the wire; the
			// caller resolves it against the CCB's outstanding command.
			return &reassembledMessage{Label: label, MsgType: msgType, Signal: 0, Body: nil}, true, nil
		}
		return &reassembledMessage{Label: label, MsgType: msgType, Signal: Signal(raw[1] & 0x3F), Body: raw[2:]}, true, nil

	case PktTypeStart:
		r.reset()
		r.inProgress, r.label, r.msgType, r.sig = true, label, msgType, Signal(raw[2]&0x3F)
		r.buf = append([]byte{}, raw[3:]...)
		return nil, false, nil

	case PktTypeCont, PktTypeEnd:
		if !r.inProgress {
			return nil, false, nil // dropped: out-of-order continuation, per avdt_msg_asmbl
		}
		if len(r.buf)+len(raw)-1 > maxReassemblySize {
			r.reset()
			return nil, false, malformed(ErrBadLength, "reassembly buffer overflow")
		}
		r.buf = append(r.buf, raw[1:]...)
		if pkt == PktTypeCont {
			return nil, false, nil
		}
		msg := &reassembledMessage{Label: r.label, MsgType: r.msgType, Signal: r.sig, Body: r.buf}
		r.reset()
		return msg, true, nil
	}
	return nil, false, malformed(ErrBadHeaderFormat, "unknown packet type")
}

func (r *reassembler) reset() {
	r.inProgress = false
	r.buf = nil
}
