package smp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairingRequestRoundTrip(t *testing.T) {
	p := PairingParams{
		IOCapability: IOCapDisplayYesNo,
		OOBDataFlag:  0,
		AuthReq:      AuthReqBonding | AuthReqMITM | AuthReqSC,
		MaxKeySize:   16,
		InitKeyDist:  KeyDistEnc | KeyDistID,
		RespKeyDist:  KeyDistEnc | KeyDistID | KeyDistSign,
	}
	wire := EncodePairingRequest(p)
	op, body, err := ParsePDU(wire)
	require.NoError(t, err)
	require.Equal(t, OpPairingRequest, op)
	require.Equal(t, p, DecodePairingRequest(body))
}

func TestParsePDURejectsLengthMismatch(t *testing.T) {
	_, _, err := ParsePDU([]byte{byte(OpPairingConfirm), 0x01, 0x02})
	require.Error(t, err)
}

func TestParsePDURejectsUnknownOpcode(t *testing.T) {
	_, _, err := ParsePDU([]byte{0xFF})
	require.Error(t, err)
}

func TestParsePDUTruncatedPairingFailedIsMalformedNotPeerFailure(t *testing.T) {
	op, _, err := ParsePDU([]byte{byte(OpPairingFailed)})
	require.Error(t, err)
	require.Equal(t, OpPairingFailed, op)
}

func TestParsePDUPairingFailedWithReason(t *testing.T) {
	op, body, err := ParsePDU([]byte{byte(OpPairingFailed), byte(ReasonDHKeyCheckFailed)})
	require.NoError(t, err)
	require.Equal(t, OpPairingFailed, op)
	require.Equal(t, Reason(ReasonDHKeyCheckFailed), Reason(body[0]))
}

func TestMasterIdentificationRoundTrip(t *testing.T) {
	wire := EncodeMasterIdentification(0x1234, 0xdeadbeefcafebabe)
	_, body, err := ParsePDU(wire)
	require.NoError(t, err)
	mi := DecodeMasterIdentification(body)
	require.Equal(t, uint16(0x1234), mi.EDIV)
	require.Equal(t, uint64(0xdeadbeefcafebabe), mi.Rand)
}
