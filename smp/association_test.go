package smp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectAssociationModelNoMITMIsJustWorks(t *testing.T) {
	req := PairingParams{IOCapability: IOCapKeyboardOnly, AuthReq: AuthReqBonding}
	rsp := PairingParams{IOCapability: IOCapDisplayOnly, AuthReq: AuthReqBonding}
	require.Equal(t, ModelJustWorks, selectAssociationModel(req, rsp, false))
}

func TestSelectAssociationModelLegacyKeyboardDisplayIsPasskey(t *testing.T) {
	req := PairingParams{IOCapability: IOCapKeyboardOnly, AuthReq: AuthReqBonding | AuthReqMITM}
	rsp := PairingParams{IOCapability: IOCapDisplayOnly, AuthReq: AuthReqBonding | AuthReqMITM}
	require.Equal(t, ModelPasskey, selectAssociationModel(req, rsp, false))
}

func TestSelectAssociationModelSCDisplayYesNoIsNumericComparison(t *testing.T) {
	req := PairingParams{IOCapability: IOCapDisplayYesNo, AuthReq: AuthReqBonding | AuthReqMITM | AuthReqSC}
	rsp := PairingParams{IOCapability: IOCapDisplayYesNo, AuthReq: AuthReqBonding | AuthReqMITM | AuthReqSC}
	require.Equal(t, ModelNumericComparison, selectAssociationModel(req, rsp, true))
}

func TestSelectAssociationModelOOBFlagTakesPriority(t *testing.T) {
	req := PairingParams{IOCapability: IOCapDisplayYesNo, OOBDataFlag: 0x01, AuthReq: AuthReqBonding | AuthReqMITM | AuthReqSC}
	rsp := PairingParams{IOCapability: IOCapDisplayYesNo, AuthReq: AuthReqBonding | AuthReqMITM | AuthReqSC}
	require.Equal(t, ModelOOB, selectAssociationModel(req, rsp, true))
}

func TestSelectAssociationModelReservedIOCapFallsBackToJustWorks(t *testing.T) {
	req := PairingParams{IOCapability: 0x05, AuthReq: AuthReqBonding | AuthReqMITM}
	rsp := PairingParams{IOCapability: IOCapDisplayOnly, AuthReq: AuthReqBonding | AuthReqMITM}
	require.Equal(t, ModelJustWorks, selectAssociationModel(req, rsp, false))
}

func TestIsSecureConnectionsRequiresBothSides(t *testing.T) {
	req := PairingParams{AuthReq: AuthReqSC}
	rsp := PairingParams{AuthReq: 0}
	require.False(t, isSecureConnections(req, rsp))

	rsp.AuthReq = AuthReqSC
	require.True(t, isSecureConnections(req, rsp))
}
