package smp

// ApplicationCallback is the upper-layer collaborator the Manager parks on
// during WAIT-APP-RSP and notifies at the end of every pairing attempt.
// One method per event, mirroring how linux/hci/smp's handler functions
// each correspond to one outward notification, but made explicit instead
// of folded into the teacher's single hci.Encrypter/BondManager pair.
type ApplicationCallback interface {
	// IOCapability lets the application report its input/output
	// capability and OOB data availability. The Manager does not call it:
	// the local Pairing Request/Response parameters come from the Option
	// values passed to NewManager (OptIOCapability, OptAuthReq,
	// OptMaxEncryptionKeySize, OptKeyDistribution).
	IOCapability(addr string) (resp IOCapabilityResponse)

	// DisplayPasskey is called when the local side must display a 6-digit
	// passkey for the user to enter on the peer (association model
	// ModelPasskey, local role "displays").
	DisplayPasskey(addr string, passkey uint32)

	// RequestPasskey is called when the local side must prompt the user to
	// enter the passkey displayed on the peer. The Manager parks until the
	// reply arrives via Manager.ResolvePasskey.
	RequestPasskey(addr string)

	// ConfirmNumeric is called for ModelNumericComparison: the application
	// displays value and asks the user to confirm both sides show the same
	// number. The Manager parks until Manager.ResolveNumericComparison.
	ConfirmNumeric(addr string, value uint32)

	// KeypressNotification forwards a received Pairing Keypress
	// Notification verbatim; it causes no state transition (§3's
	// supplemented "Keypress notification opcode" entry).
	KeypressNotification(addr string, notificationType byte)

	// PairingComplete reports the terminal outcome of one pairing attempt.
	// err is nil on success.
	PairingComplete(addr string, err error)

	// EncryptionChanged reports the result of the StartEncryption request
	// issued via Transport.
	EncryptionChanged(addr string, encrypted bool, err error)
}

// IOCapabilityResponse is the application's answer to ApplicationCallback.IOCapability.
type IOCapabilityResponse struct {
	IOCapability byte
	OOBDataFlag  byte
	AuthReq      byte
	MaxKeySize   byte
	InitKeyDist  byte
	RespKeyDist  byte
	OOBData      []byte // present only when OOBDataFlag == 0x01
}
