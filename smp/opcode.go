// Package smp implements the LE Security Manager Protocol pairing state
// machine: legacy and Secure-Connections key agreement, association-model
// selection, key distribution, and BR/EDR cross-transport key derivation.
//
// The codec and state machine are grounded on linux/hci/smp/{const,
// dispatch,handler,context}.go in the teacher repository, generalized from
// that package's single-peer globals into the handle-based, multi-peer
// Manager shape used here.
package smp

import "fmt"

// Opcode identifies an SMP PDU's single-byte type (Core Spec Vol 3 Part H §3.3).
type Opcode byte

const (
	OpPairingRequest          Opcode = 0x01
	OpPairingResponse         Opcode = 0x02
	OpPairingConfirm          Opcode = 0x03
	OpPairingRandom           Opcode = 0x04
	OpPairingFailed           Opcode = 0x05
	OpEncryptionInformation   Opcode = 0x06
	OpMasterIdentification    Opcode = 0x07
	OpIdentityInformation     Opcode = 0x08
	OpIdentityAddrInformation Opcode = 0x09
	OpSigningInformation      Opcode = 0x0A
	OpSecurityRequest         Opcode = 0x0B
	OpPairingPublicKey        Opcode = 0x0C
	OpPairingDHKeyCheck       Opcode = 0x0D
	OpPairingKeypress         Opcode = 0x0E
)

func (o Opcode) String() string {
	switch o {
	case OpPairingRequest:
		return "pairing request"
	case OpPairingResponse:
		return "pairing response"
	case OpPairingConfirm:
		return "pairing confirm"
	case OpPairingRandom:
		return "pairing random"
	case OpPairingFailed:
		return "pairing failed"
	case OpEncryptionInformation:
		return "encryption information"
	case OpMasterIdentification:
		return "master identification"
	case OpIdentityInformation:
		return "identity information"
	case OpIdentityAddrInformation:
		return "identity address information"
	case OpSigningInformation:
		return "signing information"
	case OpSecurityRequest:
		return "security request"
	case OpPairingPublicKey:
		return "pairing public key"
	case OpPairingDHKeyCheck:
		return "pairing dhkey check"
	case OpPairingKeypress:
		return "pairing keypress notification"
	default:
		return fmt.Sprintf("opcode(0x%02x)", byte(o))
	}
}

// pduLength gives the exact body length (excluding the opcode byte) each
// opcode requires. Pairing Failed is intentionally absent: its length rule
// is "at least 1 byte" rather than exact, handled specially by ParsePDU.
var pduLength = map[Opcode]int{
	OpPairingRequest:          6,
	OpPairingResponse:         6,
	OpPairingConfirm:          16,
	OpPairingRandom:           16,
	OpEncryptionInformation:   16,
	OpMasterIdentification:    10,
	OpIdentityInformation:     16,
	OpIdentityAddrInformation: 7,
	OpSigningInformation:      16,
	OpSecurityRequest:         1,
	OpPairingPublicKey:        64,
	OpPairingDHKeyCheck:       16,
	OpPairingKeypress:         1,
}

// KnownOpcode reports whether o is one of the fourteen defined SMP opcodes.
func KnownOpcode(o Opcode) bool {
	if o == OpPairingFailed {
		return true
	}
	_, ok := pduLength[o]
	return ok
}
