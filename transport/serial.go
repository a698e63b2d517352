// +build linux

// Package transport provides the byte-oriented link implementations the
// AVDTP and SMP engines are built against narrow Transport interfaces for
// (§6's "deliberately excluded" L2CAP-like channel and HCI collaborators).
// These are demo-grade, not a real L2CAP/HCI stack: they frame already-
// assembled signaling PDUs over either an H4 UART or a raw HCI user
// channel socket so cmd/btstackctl has something real to run against.
package transport

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/rigado/btstack"
)

// frameHeaderLen is the length of the length-prefix this package puts in
// front of every PDU it frames, since neither the UART nor the raw HCI
// socket below delivers message boundaries on its own the way a real
// L2CAP channel would.
const frameHeaderLen = 2

// OnDataFunc receives one reassembled frame read off the link.
type OnDataFunc func(addr string, pdu []byte)

// H4UART is a byte-oriented Transport backed by an H4-framed serial port,
// grounded on linux/hci/h4's io.ReadWriteCloser wrapping of a serial
// connection, using github.com/jacobsa/go-serial as the port driver (the
// teacher's own go.mod dependency for this, see SPEC_FULL §2.1's domain
// stack mapping). There is exactly one logical
// peer per port, addressed by the PortName it was opened with.
type H4UART struct {
	log btstack.Logger

	port io.ReadWriteCloser
	addr string
	mtu  int

	wmu sync.Mutex

	onData OnDataFunc
	done   chan struct{}
}

// H4UARTOptions configures the underlying serial port, mirroring
// jacobsa/go-serial's serial.OpenOptions fields this package actually uses.
type H4UARTOptions struct {
	PortName        string
	BaudRate        uint
	DataBits        uint
	StopBits        uint
	MTU             int
	ParityNone      bool
	MinimumReadSize uint
}

// OpenH4UART opens the serial port and starts its read loop. Frames
// arriving off the wire are delivered to onData as they complete.
func OpenH4UART(opts H4UARTOptions, onData OnDataFunc, log btstack.Logger) (*H4UART, error) {
	if opts.MinimumReadSize == 0 {
		opts.MinimumReadSize = 1
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        opts.PortName,
		BaudRate:        opts.BaudRate,
		DataBits:        opts.DataBits,
		StopBits:        opts.StopBits,
		MinimumReadSize: opts.MinimumReadSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "transport: can't open h4 uart")
	}

	mtu := opts.MTU
	if mtu <= 0 {
		mtu = 660
	}

	u := &H4UART{
		log:    log,
		port:   port,
		addr:   opts.PortName,
		mtu:    mtu,
		onData: onData,
		done:   make(chan struct{}),
	}
	go u.readLoop()
	return u, nil
}

// Close stops the read loop and closes the serial port.
func (u *H4UART) Close() error {
	close(u.done)
	return u.port.Close()
}

// Send implements avdtp.Transport: it writes one already-fragmented
// signaling packet, length-prefixed so the peer's read loop can recover
// frame boundaries from the otherwise unframed UART byte stream.
func (u *H4UART) Send(addr string, pkt []byte) error {
	u.wmu.Lock()
	defer u.wmu.Unlock()

	hdr := make([]byte, frameHeaderLen)
	binary.BigEndian.PutUint16(hdr, uint16(len(pkt)))
	if _, err := u.port.Write(hdr); err != nil {
		return errors.Wrap(err, "transport: h4 uart write header")
	}
	if _, err := u.port.Write(pkt); err != nil {
		return errors.Wrap(err, "transport: h4 uart write payload")
	}
	return nil
}

// PeerMTU implements avdtp.Transport. A serial link has one peer; addr is
// ignored, matching the single-port-single-peer model this transport has.
func (u *H4UART) PeerMTU(addr string) int { return u.mtu }

// StartEncryption implements smp.Transport as a documented no-op: starting
// LE encryption is an HCI operation, and HCI is one of §1's deliberately
// excluded lower collaborators. A real integration would issue
// HCI_LE_Start_Encryption here and wait for the Encryption Change event.
func (u *H4UART) StartEncryption(addr string, key []byte) error {
	u.log.Warnf("transport: h4 uart has no HCI collaborator to start encryption for %s", addr)
	return nil
}

func (u *H4UART) readLoop() {
	hdr := make([]byte, frameHeaderLen)
	for {
		select {
		case <-u.done:
			return
		default:
		}

		if _, err := io.ReadFull(u.port, hdr); err != nil {
			if err != io.EOF {
				u.log.Warnf("transport: h4 uart header read: %v", err)
			}
			return
		}
		n := binary.BigEndian.Uint16(hdr)
		body := make([]byte, n)
		if _, err := io.ReadFull(u.port, body); err != nil {
			u.log.Warnf("transport: h4 uart body read: %v", err)
			return
		}
		if u.onData != nil {
			u.onData(u.addr, body)
		}
	}
}
