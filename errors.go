package btstack

import "fmt"

// ErrorKind classifies a failure the way §7 of the AVDTP/SMP design
// groups them, so callers of either engine can branch on a small,
// stable set of categories instead of opaque error strings.
type ErrorKind int

const (
	// KindMalformedPdu means a length or field was out of range while decoding.
	KindMalformedPdu ErrorKind = iota
	// KindUnknownOpcode means the PDU's opcode/signal-id has no defined meaning.
	KindUnknownOpcode
	// KindStateViolation means the message is not expected in the current state.
	KindStateViolation
	// KindPolicyRefused means a local policy gate rejected the operation (SC-only mode, key size).
	KindPolicyRefused
	// KindPeerFailure means the peer itself reported failure (e.g. Pairing Failed).
	KindPeerFailure
	// KindCryptoFailure means a commitment/DHKey check or EC point validation failed.
	KindCryptoFailure
	// KindTransportLost means the underlying channel disconnected or congested permanently.
	KindTransportLost
	// KindTimeout means a response or retransmit timer expired with no reply.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedPdu:
		return "malformed_pdu"
	case KindUnknownOpcode:
		return "unknown_opcode"
	case KindStateViolation:
		return "state_violation"
	case KindPolicyRefused:
		return "policy_refused"
	case KindPeerFailure:
		return "peer_failure"
	case KindCryptoFailure:
		return "crypto_failure"
	case KindTransportLost:
		return "transport_lost"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the common error type returned by the avdtp and smp engines.
// Reason carries the protocol-specific numeric code (an AVDTP error byte
// or an SMP pairing-failure reason) that was, or would be, put on the wire.
type Error struct {
	Kind   ErrorKind
	Reason byte
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s (reason 0x%02x)", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s (reason 0x%02x): %s", e.Kind, e.Reason, e.Msg)
}

// NewError builds an *Error with the given kind, wire reason byte, and message.
func NewError(kind ErrorKind, reason byte, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Msg: msg}
}
