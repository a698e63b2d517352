package smp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyMaskTrackerIntersectsRequestedBits(t *testing.T) {
	req := PairingParams{InitKeyDist: KeyDistEnc | KeyDistID, RespKeyDist: KeyDistEnc}
	rsp := PairingParams{InitKeyDist: KeyDistEnc, RespKeyDist: KeyDistEnc | KeyDistSign}
	k := newKeyMaskTracker(req, rsp)
	require.Equal(t, KeyDistEnc, k.initiatorKey)
	require.Equal(t, KeyDistEnc, k.responderKey)
}

func TestKeyMaskTrackerClearForSCModeDropsEncAndLink(t *testing.T) {
	k := &keyMaskTracker{initiatorKey: KeyDistEnc | KeyDistID | KeyDistLink, responderKey: KeyDistEnc | KeyDistLink}
	k.clearForSCMode()
	require.Equal(t, KeyDistID, k.initiatorKey)
	require.Equal(t, byte(0), k.responderKey)
}

func TestKeyMaskTrackerClearRoleAware(t *testing.T) {
	k := &keyMaskTracker{initiatorKey: KeyDistEnc, responderKey: KeyDistEnc}

	// Initiator sends its ENC key: clears the initiator's own mask.
	k.clear(KeyDistEnc, RoleInitiator, true)
	require.Equal(t, byte(0), k.initiatorKey)
	require.Equal(t, KeyDistEnc, k.responderKey)

	// Responder sends its ENC key: clears the responder's own mask.
	k.clear(KeyDistEnc, RoleResponder, true)
	require.Equal(t, byte(0), k.responderKey)
}

func TestKeyMaskTrackerDoneAndPendingOrder(t *testing.T) {
	k := &keyMaskTracker{initiatorKey: KeyDistLink | KeyDistEnc | KeyDistSign | KeyDistID}
	require.False(t, k.done())
	require.Equal(t, []byte{KeyDistEnc, KeyDistID, KeyDistSign, KeyDistLink}, pending(k.initiatorKey))

	k.initiatorKey = 0
	k.responderKey = 0
	require.True(t, k.done())
}

func TestKeyMaskTrackerClearLinkKeyUnlessEligible(t *testing.T) {
	k := &keyMaskTracker{initiatorKey: KeyDistLink, responderKey: KeyDistLink}
	k.clearLinkKeyUnlessEligible(true, false, true) // not SC
	require.Equal(t, byte(0), k.initiatorKey)
	require.Equal(t, byte(0), k.responderKey)

	k2 := &keyMaskTracker{initiatorKey: KeyDistLink, responderKey: KeyDistLink}
	k2.clearLinkKeyUnlessEligible(true, true, true)
	require.Equal(t, KeyDistLink, k2.initiatorKey)
	require.Equal(t, KeyDistLink, k2.responderKey)
}
