package avdtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverResponseRoundTrip(t *testing.T) {
	seps := []SEPInfo{
		{SEID: 1, InUse: false, MediaType: 0, TSEP: 0},
		{SEID: 2, InUse: true, MediaType: 0, TSEP: 1},
	}
	body := EncodeDiscoverResponse(seps)
	got, err := DecodeDiscoverResponse(body)
	require.NoError(t, err)
	require.Equal(t, seps, got)
}

func TestDiscoverResponseRejectsOddLength(t *testing.T) {
	_, err := DecodeDiscoverResponse([]byte{0x01})
	require.Error(t, err)
}

func TestSingleAndMultiSEIDRoundTrip(t *testing.T) {
	seid, err := DecodeSingleSEID(EncodeSingleSEID(0x09))
	require.NoError(t, err)
	require.Equal(t, byte(0x09), seid)

	seids, err := DecodeMultiSEID(EncodeMultiSEID([]byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, seids)

	_, err = DecodeMultiSEID(nil)
	require.Error(t, err)
}

func TestSetConfigurationCommandRoundTrip(t *testing.T) {
	cmd := SetConfigCommand{
		ACPSEID: 1,
		INTSEID: 2,
		Config: &SepConfig{
			PSCMask:   pscTrans,
			CodecInfo: []byte{4, 0x00, 0x00, 0x00, 0x00},
		},
	}
	body := EncodeSetConfigCommand(cmd)
	got, err := DecodeSetConfigCommand(body)
	require.NoError(t, err)
	require.Equal(t, cmd.ACPSEID, got.ACPSEID)
	require.Equal(t, cmd.INTSEID, got.INTSEID)
	require.Equal(t, cmd.Config.CodecInfo, got.Config.CodecInfo)
}

func TestSetConfigurationRejectsMissingCodec(t *testing.T) {
	body := EncodeSetConfigCommand(SetConfigCommand{ACPSEID: 1, INTSEID: 2, Config: &SepConfig{}})
	_, err := DecodeSetConfigCommand(body)
	require.Error(t, err)
}

func TestReconfigureOnlyCarriesCodecAndProtection(t *testing.T) {
	cfg := &SepConfig{
		PSCMask:     pscTrans | pscCodec,
		CodecInfo:   []byte{2, 0x01, 0x02},
		ProtectInfo: nil,
	}
	body := EncodeReconfigCommand(5, cfg)
	got, err := DecodeReconfigCommand(body)
	require.NoError(t, err)
	require.Equal(t, byte(5), got.ACPSEID)
	require.Equal(t, []byte{2, 0x01, 0x02}, got.Config.CodecInfo)
	require.Equal(t, uint16(0), got.Config.PSCMask&pscTrans)
}

func TestGetCapabilitiesResponseTrimsToLegacyMask(t *testing.T) {
	cfg := &SepConfig{PSCMask: pscTrans | pscReport | pscRecov | pscCodec, CodecInfo: []byte{2, 0x00, 0x00}}
	body := EncodeGetCapResponse(cfg, false)
	got, err := DecodeGetCapResponse(body, false)
	require.NoError(t, err)
	require.Zero(t, got.PSCMask&pscRecov)
}

func TestGetAllCapabilitiesResponseKeepsRecovery(t *testing.T) {
	cfg := &SepConfig{
		PSCMask:      pscTrans | pscRecov | pscCodec,
		RecoveryType: 1, RecoveryMRWS: 2, RecoveryMNMP: 3,
		CodecInfo: []byte{2, 0x00, 0x00},
	}
	// EncodeConfig never builds a recovery element, so append one by hand.
	body := append(EncodeConfig(cfg), byte(CatRecovery), 3, cfg.RecoveryType, cfg.RecoveryMRWS, cfg.RecoveryMNMP)
	got, err := DecodeGetCapResponse(body, true)
	require.NoError(t, err)
	require.NotZero(t, got.PSCMask&pscRecov)
	require.Equal(t, byte(1), got.RecoveryType)
}

func TestDelayReportRoundTrip(t *testing.T) {
	seid, delay, err := DecodeDelayReport(EncodeDelayReport(7, 1234))
	require.NoError(t, err)
	require.Equal(t, byte(7), seid)
	require.Equal(t, uint16(1234), delay)
}

func TestSecurityControlCommandRoundTrip(t *testing.T) {
	body := EncodeSecurityCommand(3, []byte{0xAA, 0xBB})
	pdu, err := DecodeSecurityCommand(body)
	require.NoError(t, err)
	require.Equal(t, byte(3), pdu.SEID)
	require.Equal(t, []byte{0xAA, 0xBB}, pdu.Data)
}

func TestRejectBodyRoundTripBySignal(t *testing.T) {
	body := EncodeReject(SigStart, RejectBody{ErrParam: 9, HasParam: true, ErrCode: ErrBadState})
	r, err := DecodeReject(SigStart, body)
	require.NoError(t, err)
	require.Equal(t, byte(9), r.ErrParam)
	require.True(t, r.HasParam)
	require.Equal(t, ErrBadState, r.ErrCode)

	body = EncodeReject(SigOpen, RejectBody{ErrCode: ErrBadAcpSEID})
	r, err = DecodeReject(SigOpen, body)
	require.NoError(t, err)
	require.False(t, r.HasParam)
	require.Equal(t, ErrBadAcpSEID, r.ErrCode)
}

func TestConfigElementOrderMatchesBuildTable(t *testing.T) {
	cfg := &SepConfig{
		PSCMask:     pscTrans | pscReport | pscDelayRpt,
		CodecInfo:   []byte{2, 0x01, 0x02},
		ProtectInfo: []byte{1, 0xFF},
	}
	body := EncodeConfig(cfg)
	require.Equal(t, byte(CatMediaTransport), body[0])
	require.Equal(t, byte(CatReporting), body[2])
	require.Equal(t, byte(CatCodec), body[4])
	require.Equal(t, byte(CatContentProtection), body[8])
}
