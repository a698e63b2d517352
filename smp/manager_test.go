package smp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rigado/btstack"
)

// linkedTransport wires two Managers together for integration tests. Every
// Send/StartEncryption is dispatched on its own goroutine so a manager
// never re-enters its own event loop synchronously (which would deadlock
// against Manager.submit), mirroring how the real Transport's underlying
// L2CAP channel and controller round-trips are asynchronous with respect
// to the engine that issued them.
type linkedTransport struct {
	selfAddr     string
	peer         *Manager
	localManager *Manager

	startEncryptionCalled chan []byte
}

func (lt *linkedTransport) Send(addr string, pdu []byte) error {
	go lt.peer.OnData(lt.selfAddr, pdu)
	return nil
}

func (lt *linkedTransport) StartEncryption(addr string, key []byte) error {
	if lt.startEncryptionCalled != nil {
		lt.startEncryptionCalled <- key
	}
	m := lt.localManager
	go m.OnEncryptionChanged(addr, true, nil)
	return nil
}

type recordingCallback struct {
	done chan error
}

func newRecordingCallback() *recordingCallback {
	return &recordingCallback{done: make(chan error, 1)}
}

func (r *recordingCallback) IOCapability(addr string) IOCapabilityResponse { return IOCapabilityResponse{} }
func (r *recordingCallback) DisplayPasskey(addr string, passkey uint32)    {}
func (r *recordingCallback) RequestPasskey(addr string)                   {}
func (r *recordingCallback) ConfirmNumeric(addr string, value uint32)     {}
func (r *recordingCallback) KeypressNotification(addr string, t byte)     {}
func (r *recordingCallback) PairingComplete(addr string, err error)       { r.done <- err }
func (r *recordingCallback) EncryptionChanged(addr string, encrypted bool, err error) {}

func TestLegacyJustWorksPairingCompletesOnBothSides(t *testing.T) {
	initCb := newRecordingCallback()
	respCb := newRecordingCallback()

	var initMgr, respMgr *Manager

	// Each side names its peer by the peer's own address: the Manager uses
	// that identifier as the peer address in the confirm computation.
	initTransport := &linkedTransport{selfAddr: "aa:aa:aa:aa:aa:aa"}
	respTransport := &linkedTransport{selfAddr: "bb:bb:bb:bb:bb:bb"}

	initMgr = NewManager(btstack.NewAddr("aa:aa:aa:aa:aa:aa"), initTransport, initCb,
		OptIOCapability(IOCapNoInputNoOutput),
		OptAuthReq(AuthReqBonding),
		OptKeyDistribution(KeyDistEnc|KeyDistID|KeyDistSign, KeyDistEnc|KeyDistID|KeyDistSign),
	)
	respMgr = NewManager(btstack.NewAddr("bb:bb:bb:bb:bb:bb"), respTransport, respCb,
		OptIOCapability(IOCapNoInputNoOutput),
		OptAuthReq(AuthReqBonding),
		OptKeyDistribution(KeyDistEnc|KeyDistID|KeyDistSign, KeyDistEnc|KeyDistID|KeyDistSign),
	)
	defer initMgr.Close()
	defer respMgr.Close()

	initTransport.peer = respMgr
	initTransport.localManager = initMgr

	respTransport.peer = initMgr
	respTransport.localManager = respMgr

	require.NoError(t, initMgr.Pair("bb:bb:bb:bb:bb:bb"))

	select {
	case err := <-initCb.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initiator pairing completion")
	}

	select {
	case err := <-respCb.done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for responder pairing completion")
	}
}

func TestMalformedPairingRandomFailsWithInvalidParameters(t *testing.T) {
	cb := newRecordingCallback()
	transport := &loggingOnlyTransport{}

	mgr := NewManager(btstack.NewAddr("aa:aa:aa:aa:aa:aa"), transport, cb)
	defer mgr.Close()

	// Seed a pairing context so the malformed PDU has somewhere to land.
	mgr.submit(func() {
		p := mgr.pcbFor("resp", RoleInitiator, true)
		p.State = StateRandomPending
		p.IsSC = false
	})

	mgr.OnData("resp", append([]byte{byte(OpPairingRandom)}, make([]byte, 15)...))

	select {
	case err := <-cb.done:
		require.Error(t, err)
		be, ok := err.(*btstack.Error)
		require.True(t, ok)
		require.Equal(t, btstack.KindMalformedPdu, be.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pairing failure")
	}
}

type loggingOnlyTransport struct{}

func (loggingOnlyTransport) Send(addr string, pdu []byte) error          { return nil }
func (loggingOnlyTransport) StartEncryption(addr string, key []byte) error { return nil }
