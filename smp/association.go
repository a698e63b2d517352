package smp

// AssociationModel is the pairing method selected for a link per §4.3.2,
// derived from both sides' IO capability, MITM, SC, and OOB flags.
type AssociationModel int

const (
	ModelJustWorks AssociationModel = iota
	ModelPasskey
	ModelNumericComparison
	ModelOOB
)

func (m AssociationModel) String() string {
	switch m {
	case ModelJustWorks:
		return "just works"
	case ModelPasskey:
		return "passkey entry"
	case ModelNumericComparison:
		return "numeric comparison"
	case ModelOOB:
		return "out of band"
	default:
		return "unknown association model"
	}
}

// ioCapsTableSC is Core Spec v5.2 Vol 3 Part H Table 2.8 (Secure Connections
// mapping selection), indexed [responder IOCap][initiator IOCap].
// Grounded verbatim on ioCapsTableSC in linux/hci/smp/handler.go.
var ioCapsTableSC = [5][5]AssociationModel{
	{ModelJustWorks, ModelJustWorks, ModelPasskey, ModelJustWorks, ModelPasskey},
	{ModelJustWorks, ModelNumericComparison, ModelPasskey, ModelJustWorks, ModelNumericComparison},
	{ModelPasskey, ModelPasskey, ModelPasskey, ModelJustWorks, ModelPasskey},
	{ModelJustWorks, ModelJustWorks, ModelJustWorks, ModelJustWorks, ModelJustWorks},
	{ModelPasskey, ModelNumericComparison, ModelPasskey, ModelJustWorks, ModelNumericComparison},
}

// ioCapsTableLegacy is Table 2.7 (legacy mapping selection), same indexing.
// Grounded verbatim on ioCapsTableLegacy in linux/hci/smp/handler.go.
var ioCapsTableLegacy = [5][5]AssociationModel{
	{ModelJustWorks, ModelJustWorks, ModelPasskey, ModelJustWorks, ModelPasskey},
	{ModelJustWorks, ModelJustWorks, ModelPasskey, ModelJustWorks, ModelPasskey},
	{ModelPasskey, ModelPasskey, ModelPasskey, ModelJustWorks, ModelPasskey},
	{ModelJustWorks, ModelJustWorks, ModelJustWorks, ModelJustWorks, ModelJustWorks},
	{ModelPasskey, ModelPasskey, ModelPasskey, ModelJustWorks, ModelPasskey},
}

// selectAssociationModel implements §4.3.2: OOB takes priority, then the
// no-MITM-requested shortcut to Just Works, then the IO-capability matrix
// (SC or legacy depending on whether both sides advertised SC support).
// Generalizes determinePairingType in linux/hci/smp/handler.go from that
// package's single global pairingContext to explicit request/response
// parameters plus an explicit isSC.
func selectAssociationModel(req, rsp PairingParams, isSC bool) AssociationModel {
	if req.OOBDataFlag == 0x01 || rsp.OOBDataFlag == 0x01 {
		return ModelOOB
	}

	if req.AuthReq&AuthReqMITM == 0 && rsp.AuthReq&AuthReqMITM == 0 {
		return ModelJustWorks
	}

	if req.IOCapability >= ioCapsReservedStart || rsp.IOCapability >= ioCapsReservedStart {
		return ModelJustWorks
	}

	table := &ioCapsTableLegacy
	if isSC {
		table = &ioCapsTableSC
	}
	return table[rsp.IOCapability][req.IOCapability]
}

// isSecureConnections reports whether both sides' AuthReq bytes advertise
// SC support, the gate §4.3.2 uses to decide which state-machine branch runs.
func isSecureConnections(req, rsp PairingParams) bool {
	return req.AuthReq&AuthReqSC != 0 && rsp.AuthReq&AuthReqSC != 0
}
