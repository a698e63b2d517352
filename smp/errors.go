package smp

import "github.com/rigado/btstack"

// Reason is the one-byte failure code carried by a Pairing Failed PDU,
// Core Spec v5.2 Vol 3 Part H Table 3.7. Grounded on pairingFailedReason
// in the teacher's linux/hci/smp/dispatch.go, extended with the numeric
// values the teacher left as a bare string table.
type Reason byte

const (
	ReasonReserved                    Reason = 0x00
	ReasonPasskeyEntryFailed          Reason = 0x01
	ReasonOOBNotAvailable             Reason = 0x02
	ReasonAuthenticationRequirements  Reason = 0x03
	ReasonConfirmValueFailed          Reason = 0x04
	ReasonPairingNotSupported         Reason = 0x05
	ReasonEncryptionKeySize           Reason = 0x06
	ReasonCommandNotSupported         Reason = 0x07
	ReasonUnspecifiedReason           Reason = 0x08
	ReasonRepeatedAttempts            Reason = 0x09
	ReasonInvalidParameters           Reason = 0x0A
	ReasonDHKeyCheckFailed            Reason = 0x0B
	ReasonNumericComparisonFailed     Reason = 0x0C
	ReasonBREDRPairingInProgress      Reason = 0x0D
	ReasonCrossTransportNotAllowed    Reason = 0x0E
)

var reasonText = map[Reason]string{
	ReasonReserved:                   "reserved",
	ReasonPasskeyEntryFailed:         "passkey entry failed",
	ReasonOOBNotAvailable:            "oob not available",
	ReasonAuthenticationRequirements: "authentication requirements",
	ReasonConfirmValueFailed:         "confirm value failed",
	ReasonPairingNotSupported:        "pairing not supported",
	ReasonEncryptionKeySize:          "encryption key size",
	ReasonCommandNotSupported:        "command not supported",
	ReasonUnspecifiedReason:          "unspecified reason",
	ReasonRepeatedAttempts:           "repeated attempts",
	ReasonInvalidParameters:          "invalid parameters",
	ReasonDHKeyCheckFailed:           "dhkey check failed",
	ReasonNumericComparisonFailed:    "numeric comparison failed",
	ReasonBREDRPairingInProgress:     "BR/EDR pairing in progress",
	ReasonCrossTransportNotAllowed:   "cross-transport key derivation/generation not allowed",
}

func (r Reason) String() string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return "unknown reason"
}

// kindFor classifies a Reason into one of the ErrorKinds listed in §7, so
// callers branching on err.(*btstack.Error).Kind don't need to know the
// full reason-code table.
func kindFor(r Reason) btstack.ErrorKind {
	switch r {
	case ReasonInvalidParameters:
		return btstack.KindMalformedPdu
	case ReasonCommandNotSupported:
		return btstack.KindUnknownOpcode
	case ReasonAuthenticationRequirements, ReasonEncryptionKeySize, ReasonCrossTransportNotAllowed:
		return btstack.KindPolicyRefused
	case ReasonConfirmValueFailed, ReasonDHKeyCheckFailed, ReasonNumericComparisonFailed:
		return btstack.KindCryptoFailure
	default:
		return btstack.KindPeerFailure
	}
}

// newFailure builds the *btstack.Error the state machine reports to the
// application callback and, where applicable, wires onto an outbound
// Pairing Failed PDU.
func newFailure(r Reason, msg string) *btstack.Error {
	return btstack.NewError(kindFor(r), byte(r), msg)
}
