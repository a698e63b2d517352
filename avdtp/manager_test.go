package avdtp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// linkedTransport wires two Managers together, delivering each Send on the
// peer's own goroutine. A synchronous call would deadlock: Manager.submit
// blocks its caller until the job runs, and two mutually-sending Managers
// would recurse into each other's locked event loop.
type linkedTransport struct {
	mu      sync.Mutex
	selfMTU int
	peer    *Manager
	sent    [][]byte
}

func (lt *linkedTransport) Send(addr string, pkt []byte) error {
	lt.mu.Lock()
	lt.sent = append(lt.sent, append([]byte{}, pkt...))
	lt.mu.Unlock()
	go lt.peer.OnData(addr, pkt)
	return nil
}

func (lt *linkedTransport) PeerMTU(addr string) int { return lt.selfMTU }

// capturingTransport records every fragment sent but never delivers it
// anywhere, for tests that synthesize the peer's reply by hand.
type capturingTransport struct {
	mu   sync.Mutex
	mtu  int
	sent [][]byte
}

func (ct *capturingTransport) Send(addr string, pkt []byte) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.sent = append(ct.sent, append([]byte{}, pkt...))
	return nil
}

func (ct *capturingTransport) PeerMTU(addr string) int { return ct.mtu }

func (ct *capturingTransport) last() []byte {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.sent[len(ct.sent)-1]
}

// recordingCallback implements ApplicationCallback, recording whichever
// events tests care about onto buffered channels and defaulting everything
// else to a success / empty reply.
type recordingCallback struct {
	localSeps []SEPInfo

	discoverResult      chan []SEPInfo
	getCapResult        chan *SepConfig
	setConfigReceived   chan *SetConfigCommand
	commandResult       chan error
	transportFailure    chan error
}

func (r *recordingCallback) OnDiscoverRequest(addr string) []SEPInfo { return r.localSeps }
func (r *recordingCallback) OnGetCapabilitiesRequest(addr string, seid byte) (*SepConfig, ErrorCode) {
	return &SepConfig{PSCMask: pscTrans | pscCodec, CodecInfo: []byte{2, 0x00, 0x00}}, 0
}

func (r *recordingCallback) OnDiscover(addr string, seps []SEPInfo, err error) {
	if r.discoverResult != nil {
		r.discoverResult <- seps
	}
}

func (r *recordingCallback) OnGetCapabilities(addr string, seid byte, cfg *SepConfig, err error) {
	if r.getCapResult != nil {
		r.getCapResult <- cfg
	}
}

func (r *recordingCallback) OnSetConfiguration(addr string, cmd *SetConfigCommand) ErrorCode {
	if r.setConfigReceived != nil {
		r.setConfigReceived <- cmd
	}
	return 0
}

func (r *recordingCallback) OnGetConfiguration(addr string, seid byte) (*SepConfig, ErrorCode) {
	return &SepConfig{}, 0
}
func (r *recordingCallback) OnReconfigure(addr string, cmd *SetConfigCommand) ErrorCode { return 0 }
func (r *recordingCallback) OnOpen(addr string, seid byte) ErrorCode                    { return 0 }
func (r *recordingCallback) OnStart(addr string, seids []byte) ErrorCode                { return 0 }
func (r *recordingCallback) OnClose(addr string, seid byte) ErrorCode                   { return 0 }
func (r *recordingCallback) OnSuspend(addr string, seids []byte) ErrorCode              { return 0 }
func (r *recordingCallback) OnAbort(addr string, seid byte)                             {}
func (r *recordingCallback) OnSecurityControl(addr string, seid byte, data []byte) ([]byte, ErrorCode) {
	return nil, 0
}
func (r *recordingCallback) OnDelayReport(addr string, seid byte, delay uint16) ErrorCode { return 0 }

func (r *recordingCallback) OnCommandResult(addr string, sig Signal, err error) {
	if r.commandResult != nil {
		r.commandResult <- err
	}
}

func (r *recordingCallback) OnTransportFailure(addr string, sig Signal, err error) {
	if r.transportFailure != nil {
		r.transportFailure <- err
	}
}

func TestDiscoverRoundTripBetweenTwoManagers(t *testing.T) {
	acceptorSeps := []SEPInfo{{SEID: 1, MediaType: 0, TSEP: 1}}

	acceptorCB := &recordingCallback{localSeps: acceptorSeps}
	initiatorCB := &recordingCallback{discoverResult: make(chan []SEPInfo, 1)}

	acceptorTransport := &linkedTransport{selfMTU: 672}
	initiatorTransport := &linkedTransport{selfMTU: 672}

	acceptor := NewManager(acceptorTransport, acceptorCB)
	initiator := NewManager(initiatorTransport, initiatorCB)
	defer acceptor.Close()
	defer initiator.Close()

	acceptorTransport.peer = initiator
	initiatorTransport.peer = acceptor

	initiator.Discover("acceptor")

	got := <-initiatorCB.discoverResult
	require.Equal(t, acceptorSeps, got)
}

func TestFragmentedSetConfigurationReassemblesAcrossSmallMTU(t *testing.T) {
	acceptorCB := &recordingCallback{setConfigReceived: make(chan *SetConfigCommand, 1)}
	initiatorCB := &recordingCallback{commandResult: make(chan error, 1)}

	acceptorTransport := &linkedTransport{selfMTU: 16} // forces fragmentation
	initiatorTransport := &linkedTransport{selfMTU: 16}

	acceptor := NewManager(acceptorTransport, acceptorCB)
	initiator := NewManager(initiatorTransport, initiatorCB)
	defer acceptor.Close()
	defer initiator.Close()

	acceptorTransport.peer = initiator
	initiatorTransport.peer = acceptor

	cmd := SetConfigCommand{
		ACPSEID: 1,
		INTSEID: 2,
		Config: &SepConfig{
			PSCMask:   pscTrans,
			CodecInfo: []byte{20, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		},
	}
	initiator.SetConfiguration("acceptor", cmd)

	got := <-acceptorCB.setConfigReceived
	require.Equal(t, cmd.ACPSEID, got.ACPSEID)
	require.Equal(t, cmd.Config.CodecInfo, got.Config.CodecInfo)

	require.NoError(t, <-initiatorCB.commandResult)
}

func TestGeneralRejectResolvesAgainstOutstandingCommand(t *testing.T) {
	ct := &capturingTransport{mtu: 672}
	cb := &recordingCallback{commandResult: make(chan error, 1)}
	m := NewManager(ct, cb)
	defer m.Close()

	m.Open("peer", 5)

	sent := ct.last()
	label, _, _ := decodeHeaderByte(sent[0])

	grej := []byte{(label&0x0F)<<4 | byte(PktTypeSingle)<<2 | byte(MsgTypeRej)}
	m.OnData("peer", grej)

	err := <-cb.commandResult
	require.Error(t, err)
}

func TestUnmatchedResponseIsDroppedWithoutPanicking(t *testing.T) {
	ct := &capturingTransport{mtu: 672}
	cb := &recordingCallback{}
	m := NewManager(ct, cb)
	defer m.Close()

	rsp := encodeHeaderSingle(9, MsgTypeRsp, SigOpen)
	m.OnData("peer", rsp) // no outstanding command; must be dropped, not panic
}
