package smp

import (
	"encoding/binary"

	"github.com/rigado/btstack"
)

// IOCapability values, Core Spec Vol 3 Part H Table 2.4.
const (
	IOCapDisplayOnly     byte = 0x00
	IOCapDisplayYesNo    byte = 0x01
	IOCapKeyboardOnly    byte = 0x02
	IOCapNoInputNoOutput byte = 0x03
	IOCapKeyboardDisplay byte = 0x04

	ioCapsReservedStart = 0x05
)

// AuthReq flag bits, Core Spec Vol 3 Part H Table 2.7.
const (
	AuthReqBondingMask  byte = 0x03
	AuthReqBonding      byte = 0x01
	AuthReqMITM         byte = 0x04
	AuthReqSC           byte = 0x08
	AuthReqKeypress     byte = 0x10
	AuthReqCT2          byte = 0x20
	AuthReqH7Support    byte = 0x40
)

// Key-distribution bits, shared by the InitKeyDist/RespKeyDist PDU fields
// and the PairingControlBlock masks of §4.3.3.
const (
	KeyDistEnc  byte = 0x01
	KeyDistID   byte = 0x02
	KeyDistSign byte = 0x04
	KeyDistLink byte = 0x08
)

// PairingParams is the shared body of a Pairing Request/Response PDU.
type PairingParams struct {
	IOCapability  byte
	OOBDataFlag   byte
	AuthReq       byte
	MaxKeySize    byte
	InitKeyDist   byte
	RespKeyDist   byte
}

func (p PairingParams) encode() []byte {
	return []byte{p.IOCapability, p.OOBDataFlag, p.AuthReq, p.MaxKeySize, p.InitKeyDist, p.RespKeyDist}
}

func decodePairingParams(b []byte) PairingParams {
	return PairingParams{
		IOCapability: b[0],
		OOBDataFlag:  b[1],
		AuthReq:      b[2],
		MaxKeySize:   b[3],
		InitKeyDist:  b[4],
		RespKeyDist:  b[5],
	}
}

// EncryptionInformation carries a 16-byte LTK.
type EncryptionInformation struct{ LTK [16]byte }

// MasterIdentification carries the EDIV/Rand pair used to re-derive an LTK.
type MasterIdentification struct {
	EDIV uint16
	Rand uint64
}

// IdentityInformation carries a 16-byte IRK.
type IdentityInformation struct{ IRK [16]byte }

// IdentityAddressInformation carries the peer's identity address.
type IdentityAddressInformation struct {
	AddrType byte
	Addr     [6]byte
}

// SigningInformation carries a 16-byte CSRK.
type SigningInformation struct{ CSRK [16]byte }

func malformed(op Opcode, msg string) error {
	return btstack.NewError(btstack.KindMalformedPdu, byte(ReasonInvalidParameters), op.String()+": "+msg)
}

// ParsePDU splits a received SMP PDU into its opcode and body, validating
// the body length against the opcode's fixed-length table. A length
// mismatch yields a malformed-PDU error carrying ReasonInvalidParameters,
// per §4.1's "SMP opcode encoding" rule; an unknown opcode yields a
// KindUnknownOpcode error carrying ReasonCommandNotSupported.
//
// Pairing Failed is special-cased: a body shorter than 1 byte is reported
// as malformed but the caller MUST NOT reply with another Pairing Failed
// (the spec's anti-amplification rule); callers branch on Opcode ==
// OpPairingFailed before deciding whether to respond to a parse error.
func ParsePDU(raw []byte) (Opcode, []byte, error) {
	if len(raw) < 1 {
		return 0, nil, malformed(0, "empty PDU")
	}
	op := Opcode(raw[0])
	body := raw[1:]

	if op == OpPairingFailed {
		if len(body) < 1 {
			return op, nil, malformed(op, "truncated pairing failed body")
		}
		return op, body[:1], nil
	}

	want, ok := pduLength[op]
	if !ok {
		return op, nil, btstack.NewError(btstack.KindUnknownOpcode, byte(ReasonCommandNotSupported), "unknown smp opcode")
	}
	if len(body) != want {
		return op, nil, malformed(op, "length mismatch")
	}
	return op, body, nil
}

// BuildPDU prepends op's opcode byte to body, which the caller has already
// encoded to the opcode's fixed length.
func BuildPDU(op Opcode, body []byte) []byte {
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(op))
	out = append(out, body...)
	return out
}

// DecodePairingRequest parses a Pairing Request PDU body (6 bytes).
func DecodePairingRequest(body []byte) PairingParams { return decodePairingParams(body) }

// EncodePairingRequest builds a Pairing Request PDU.
func EncodePairingRequest(p PairingParams) []byte { return BuildPDU(OpPairingRequest, p.encode()) }

// DecodePairingResponse parses a Pairing Response PDU body (6 bytes).
func DecodePairingResponse(body []byte) PairingParams { return decodePairingParams(body) }

// EncodePairingResponse builds a Pairing Response PDU.
func EncodePairingResponse(p PairingParams) []byte { return BuildPDU(OpPairingResponse, p.encode()) }

// EncodePairingConfirm builds a Pairing Confirm PDU from a 16-byte commitment value.
func EncodePairingConfirm(cfm []byte) []byte { return BuildPDU(OpPairingConfirm, cfm) }

// EncodePairingRandom builds a Pairing Random PDU from a 16-byte nonce.
func EncodePairingRandom(nonce []byte) []byte { return BuildPDU(OpPairingRandom, nonce) }

// EncodePairingFailed builds a Pairing Failed PDU with the given reason.
func EncodePairingFailed(reason Reason) []byte { return BuildPDU(OpPairingFailed, []byte{byte(reason)}) }

// EncodeEncryptionInformation builds an Encryption Information PDU.
func EncodeEncryptionInformation(ltk []byte) []byte {
	return BuildPDU(OpEncryptionInformation, ltk)
}

// EncodeMasterIdentification builds a Master Identification PDU.
func EncodeMasterIdentification(ediv uint16, rand uint64) []byte {
	b := make([]byte, 10)
	binary.LittleEndian.PutUint16(b[:2], ediv)
	binary.LittleEndian.PutUint64(b[2:], rand)
	return BuildPDU(OpMasterIdentification, b)
}

// DecodeMasterIdentification parses a Master Identification PDU body (10 bytes).
func DecodeMasterIdentification(body []byte) MasterIdentification {
	return MasterIdentification{
		EDIV: binary.LittleEndian.Uint16(body[:2]),
		Rand: binary.LittleEndian.Uint64(body[2:]),
	}
}

// EncodeIdentityInformation builds an Identity Information PDU.
func EncodeIdentityInformation(irk []byte) []byte { return BuildPDU(OpIdentityInformation, irk) }

// EncodeIdentityAddressInformation builds an Identity Address Information PDU.
func EncodeIdentityAddressInformation(addrType byte, addr [6]byte) []byte {
	b := append([]byte{addrType}, addr[:]...)
	return BuildPDU(OpIdentityAddrInformation, b)
}

// DecodeIdentityAddressInformation parses an Identity Address Information PDU body (7 bytes).
func DecodeIdentityAddressInformation(body []byte) IdentityAddressInformation {
	var out IdentityAddressInformation
	out.AddrType = body[0]
	copy(out.Addr[:], body[1:])
	return out
}

// EncodeSigningInformation builds a Signing Information PDU.
func EncodeSigningInformation(csrk []byte) []byte { return BuildPDU(OpSigningInformation, csrk) }

// EncodeSecurityRequest builds a Security Request PDU.
func EncodeSecurityRequest(authReq byte) []byte {
	return BuildPDU(OpSecurityRequest, []byte{authReq})
}

// EncodePairingPublicKey builds a Pairing Public Key PDU from the 64-byte wire encoding.
func EncodePairingPublicKey(xy []byte) []byte { return BuildPDU(OpPairingPublicKey, xy) }

// EncodePairingDHKeyCheck builds a Pairing DHKey Check PDU from a 16-byte check value.
func EncodePairingDHKeyCheck(e []byte) []byte { return BuildPDU(OpPairingDHKeyCheck, e) }

// KeypressNotificationType values, Core Spec Vol 3 Part H Table 2.9.
const (
	KeypressStarted         byte = 0x00
	KeypressDigitEntered    byte = 0x01
	KeypressDigitErased     byte = 0x02
	KeypressCleared         byte = 0x03
	KeypressCompleted       byte = 0x04
)

// EncodePairingKeypress builds a Pairing Keypress Notification PDU.
func EncodePairingKeypress(t byte) []byte { return BuildPDU(OpPairingKeypress, []byte{t}) }
