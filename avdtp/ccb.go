package avdtp

import (
	"github.com/google/uuid"
)

// pendingMsg is a signaling message queued for fragmented delivery: its
// wire fragments are precomputed so a congested Transport can be resumed
// from the exact fragment it rejected, mirroring avdt_msg_send's
// "p_ccb->p_curr_msg" resumable-offset state.
type pendingMsg struct {
	sig   Signal
	isCmd bool
	label byte
	param byte // seid, meaningful only for get_capabilities/get_all_capabilities commands
	frags [][]byte
	next  int
}

// outstandingCmd is the one command a CCB may have in flight at a time, so
// a response/reject can be cross-checked against it (avdt_msg_ind's
// p_ccb->p_curr_cmd) and its timer cancelled on arrival. It embeds the
// pendingMsg that produced it so a retransmit timer fire can resend the
// exact original fragments rather than rebuild the message.
type outstandingCmd struct {
	pendingMsg
	retries int
	armed   bool // a response or retransmit timer has been armed for this attempt
}

// CCB is a signaling channel control block: one per peer, tracking the
// transaction label, the in-flight command (if any), queued responses and
// commands still waiting their turn, the fragmentation/reassembly state,
// and the response/retransmit timer handles. Ported from AvdtpCcb, trimmed
// to what §4.2 actually exercises (the teacher has no AVDTP CCB to ground
// on, so the shape follows the original C struct).
type CCB struct {
	Addr string
	ID   uuid.UUID // correlation id attached to every log line for this channel

	label byte

	curCmd *outstandingCmd
	cmdQ   []pendingMsg // commands queued behind curCmd; only one command may be outstanding
	rspQ   []pendingMsg // responses/rejects to our peer's commands, drained ahead of cmdQ

	frag  *fragmenter
	asmbl reassembler

	respTimer, retransTimer uint32 // timer handles, §5 "shared resources"

	Discovered []SEPInfo
}

func newCCB(addr string, peerMTU int, respHandle, retransHandle uint32) *CCB {
	return &CCB{
		Addr:         addr,
		ID:           uuid.New(),
		frag:         newFragmenter(peerMTU),
		respTimer:    respHandle,
		retransTimer: retransHandle,
	}
}

func (c *CCB) nextLabel() byte {
	l := c.label
	c.label = (c.label + 1) % 16
	return l
}

// ApplicationCallback is the upper-layer collaborator a Manager reports
// parsed signaling events to, per §6's "upper application callback
// surface". Every method is invoked on the Manager's own event-loop
// goroutine; callbacks must not block.
//
// OnDiscoverRequest and OnGetCapabilitiesRequest answer a peer's incoming
// query about our own stream endpoints; OnDiscover and OnGetCapabilities
// report the outcome of a query we sent. The two pairs are deliberately
// separate even though they share a signal, since one side runs on command
// arrival and the other on response/reject arrival.
type ApplicationCallback interface {
	OnDiscoverRequest(addr string) []SEPInfo
	OnGetCapabilitiesRequest(addr string, seid byte) (*SepConfig, ErrorCode)

	OnDiscover(addr string, seps []SEPInfo, err error)
	OnGetCapabilities(addr string, seid byte, cfg *SepConfig, err error)
	OnSetConfiguration(addr string, cmd *SetConfigCommand) ErrorCode // 0 = accept
	OnGetConfiguration(addr string, seid byte) (*SepConfig, ErrorCode)
	OnReconfigure(addr string, cmd *SetConfigCommand) ErrorCode
	OnOpen(addr string, seid byte) ErrorCode
	OnStart(addr string, seids []byte) ErrorCode
	OnClose(addr string, seid byte) ErrorCode
	OnSuspend(addr string, seids []byte) ErrorCode
	OnAbort(addr string, seid byte)
	OnSecurityControl(addr string, seid byte, data []byte) ([]byte, ErrorCode)
	OnDelayReport(addr string, seid byte, delay uint16) ErrorCode
	OnCommandResult(addr string, sig Signal, err error)
	OnTransportFailure(addr string, sig Signal, err error)
}
