package smp

// Transport is the L2CAP-fixed-channel collaborator (CID 0x0006, the SMP
// channel) that the Manager drives. Grounded on the writePDU closure and
// transport struct in linux/hci/smp/transport.go, generalized from that
// package's single bound function into an interface so Manager can serve
// multiple concurrent links.
type Transport interface {
	// Send writes a complete SMP PDU (opcode + body) to the peer identified
	// by addr. The SMP channel carries whole PDUs, never fragments — any
	// segmentation into L2CAP frames happens below this interface.
	Send(addr string, pdu []byte) error

	// StartEncryption asks the controller to start link encryption using
	// the given key (STK for legacy pairing, LTK for Secure Connections).
	// The result arrives later as a Manager.OnEncryptionChanged call from
	// the transport, mirroring §5's "operations that would block are
	// split" rule (this is the controller round-trip for LE-Start-Encryption).
	StartEncryption(addr string, key []byte) error
}
