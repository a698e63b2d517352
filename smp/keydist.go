package smp

// Role identifies which side of the link a PairingControlBlock represents,
// needed by the mask-update rule below since the teacher's
// smp_update_key_mask (original_source/stack/smp/smp_act.cc) branches on
// master/slave role, not just initiator/responder.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// keyMaskTracker holds the two key-distribution bitmasks of §4.3.3:
// initiatorKey is the set of key types the initiator will send, responderKey
// the set the responder will send. Both start as the intersection of what each
// side requested (InitKeyDist/RespKeyDist on the wire) and what this side
// actually supports distributing.
type keyMaskTracker struct {
	initiatorKey byte
	responderKey byte
}

func newKeyMaskTracker(initReq, rspReq PairingParams) *keyMaskTracker {
	return &keyMaskTracker{
		initiatorKey: initReq.InitKeyDist & rspReq.InitKeyDist,
		responderKey: initReq.RespKeyDist & rspReq.RespKeyDist,
	}
}

// clearForSCMode drops ENC and LK from both masks: in Secure Connections
// those keys are derived locally (LTK from f5, link key from h6/h7) rather
// than exchanged over the wire, per §4.3.3.
func (k *keyMaskTracker) clearForSCMode() {
	k.initiatorKey &^= KeyDistEnc | KeyDistLink
	k.responderKey &^= KeyDistEnc | KeyDistLink
}

// clearLinkKeyUnlessEligible drops LK from both masks unless both sides
// requested it, SC is in use, and policy allows cross-transport derivation —
// "otherwise it is cleared before distribution begins" (§4.3.3).
func (k *keyMaskTracker) clearLinkKeyUnlessEligible(bothRequestedLK, scInUse, policyAllowsXTD bool) {
	if !(bothRequestedLK && scInUse && policyAllowsXTD) {
		k.initiatorKey &^= KeyDistLink
		k.responderKey &^= KeyDistLink
	}
}

// clear implements the role-aware mask-update rule of §4.3.3: the bit is
// cleared in the direction-appropriate mask depending on local role and
// whether the key was sent (by us) or received (from the peer). Grounded
// on smp_update_key_mask's role branch in
// original_source/stack/smp/smp_act.cc, collapsed from that function's
// four-way master/slave x send/receive branch into one role-relative rule:
// the sender's own mask always clears the bit it just sent.
func (k *keyMaskTracker) clear(bit byte, local Role, sent bool) {
	// The mask that owns "keys sent by the initiator" is initiatorKey;
	// whichever side is acting (sending or receiving) clears the bit in
	// the mask that names the sender's role.
	senderIsInitiator := (local == RoleInitiator) == sent
	if senderIsInitiator {
		k.initiatorKey &^= bit
	} else {
		k.responderKey &^= bit
	}
}

// done reports whether both masks have reached zero, the §4.3.3 condition
// that (combined with a zero unacked-tx counter) arms the delayed-auth tail timer.
func (k *keyMaskTracker) done() bool {
	return k.initiatorKey == 0 && k.responderKey == 0
}

// pending returns the key-type bits still set in mask, walked in the fixed
// order {ENC, ID, CSRK, LK} that §4.3.3 mandates.
func pending(mask byte) []byte {
	order := []byte{KeyDistEnc, KeyDistID, KeyDistSign, KeyDistLink}
	out := make([]byte, 0, 4)
	for _, bit := range order {
		if mask&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}
