// Command btstackctl is a demo CLI driving the avdtp and smp engines over
// a real link, grounded on currantlabs-ble/examples/blesh's urfave/cli
// subcommand layout and rigado-ble's own example binaries' flag-driven
// device selection.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/rigado/btstack"
	"github.com/rigado/btstack/avdtp"
	"github.com/rigado/btstack/smp"
	"github.com/rigado/btstack/transport"
)

func main() {
	app := cli.NewApp()
	app.Name = "btstackctl"
	app.Usage = "drive the AVDTP and SMP engines over a serial or raw HCI link"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "uart", Usage: "path to an H4 UART device (e.g. /dev/ttyUSB0)"},
		cli.IntFlag{Name: "hci", Value: -1, Usage: "hci device id for a raw HCI socket transport (-1 = first available)"},
		cli.StringFlag{Name: "addr", Usage: "peer address/identifier", Value: "peer"},
	}
	app.Commands = []cli.Command{
		discoverCommand,
		getCapabilitiesCommand,
		pairCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalingLink is what both transport.H4UART and transport.HCIRawSocket
// offer, covering avdtp.Transport and smp.Transport.
type signalingLink interface {
	Send(addr string, pkt []byte) error
	PeerMTU(addr string) int
	StartEncryption(addr string, key []byte) error
	Close() error
}

// openSignalingTransport opens whichever link the global flags selected
// and wires its inbound frames to onData.
func openSignalingTransport(c *cli.Context, onData transport.OnDataFunc) (signalingLink, error) {
	log := btstack.GetLogger()

	if uart := c.GlobalString("uart"); uart != "" {
		u, err := transport.OpenH4UART(transport.H4UARTOptions{
			PortName: uart,
			BaudRate: 115200,
			DataBits: 8,
			StopBits: 1,
		}, onData, log)
		if err != nil {
			return nil, err
		}
		return u, nil
	}

	h, err := transport.OpenHCIRawSocket(c.GlobalInt("hci"), 0, onData, log)
	if err != nil {
		return nil, errors.Wrap(err, "no --uart given and hci socket open failed")
	}
	return h, nil
}

var discoverCommand = cli.Command{
	Name:  "discover",
	Usage: "send an AVDTP discover command and print the peer's stream endpoints",
	Action: func(c *cli.Context) error {
		addr := c.GlobalString("addr")
		done := make(chan struct{})

		var mgr *avdtp.Manager
		cb := &cliAVDTPCallback{done: done}

		tr, err := openSignalingTransport(c, func(a string, pdu []byte) { mgr.OnData(a, pdu) })
		if err != nil {
			return err
		}
		defer tr.Close()

		mgr = avdtp.NewManager(tr, cb)
		defer mgr.Close()

		mgr.Discover(addr)
		<-done
		return nil
	},
}

var getCapabilitiesCommand = cli.Command{
	Name:  "get-capabilities",
	Usage: "send an AVDTP get_all_capabilities command for a SEID",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "seid", Value: 1, Usage: "stream endpoint id to query"},
	},
	Action: func(c *cli.Context) error {
		addr := c.GlobalString("addr")
		done := make(chan struct{})

		var mgr *avdtp.Manager
		cb := &cliAVDTPCallback{done: done}

		tr, err := openSignalingTransport(c, func(a string, pdu []byte) { mgr.OnData(a, pdu) })
		if err != nil {
			return err
		}
		defer tr.Close()

		mgr = avdtp.NewManager(tr, cb)
		defer mgr.Close()

		mgr.GetAllCapabilities(addr, byte(c.Int("seid")))
		<-done
		return nil
	},
}

var pairCommand = cli.Command{
	Name:  "pair",
	Usage: "start LE SMP pairing with the peer",
	Flags: []cli.Flag{
		cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
	},
	Action: func(c *cli.Context) error {
		addr := c.GlobalString("addr")
		done := make(chan error, 1)

		var mgr *smp.Manager
		cb := &cliSMPCallback{done: done}

		tr, err := openSignalingTransport(c, func(a string, pdu []byte) { mgr.OnData(a, pdu) })
		if err != nil {
			return err
		}
		defer tr.Close()

		mgr = smp.NewManager(btstack.NewAddr("00:00:00:00:00:00"), tr, cb)
		defer mgr.Close()

		if err := mgr.Pair(addr); err != nil {
			return err
		}

		select {
		case err := <-done:
			if err != nil {
				return err
			}
			fmt.Println("pairing complete")
			return nil
		case <-time.After(c.Duration("timeout")):
			return errors.New("pairing timed out")
		}
	},
}

type cliAVDTPCallback struct {
	done chan struct{}
}

func (c *cliAVDTPCallback) OnDiscoverRequest(addr string) []avdtp.SEPInfo { return nil }
func (c *cliAVDTPCallback) OnGetCapabilitiesRequest(addr string, seid byte) (*avdtp.SepConfig, avdtp.ErrorCode) {
	return &avdtp.SepConfig{}, 0
}

func (c *cliAVDTPCallback) OnDiscover(addr string, seps []avdtp.SEPInfo, err error) {
	if err != nil {
		fmt.Printf("discover failed: %v\n", err)
	} else {
		for _, s := range seps {
			fmt.Printf("seid=%d in_use=%v media_type=%d tsep=%d\n", s.SEID, s.InUse, s.MediaType, s.TSEP)
		}
	}
	close(c.done)
}

func (c *cliAVDTPCallback) OnGetCapabilities(addr string, seid byte, cfg *avdtp.SepConfig, err error) {
	if err != nil {
		fmt.Printf("get_capabilities failed: %v\n", err)
	} else {
		fmt.Printf("seid=%d psc_mask=0x%04x codec=% x\n", seid, cfg.PSCMask, cfg.CodecInfo)
	}
	close(c.done)
}

func (c *cliAVDTPCallback) OnSetConfiguration(addr string, cmd *avdtp.SetConfigCommand) avdtp.ErrorCode {
	return 0
}
func (c *cliAVDTPCallback) OnGetConfiguration(addr string, seid byte) (*avdtp.SepConfig, avdtp.ErrorCode) {
	return &avdtp.SepConfig{}, 0
}
func (c *cliAVDTPCallback) OnReconfigure(addr string, cmd *avdtp.SetConfigCommand) avdtp.ErrorCode {
	return 0
}
func (c *cliAVDTPCallback) OnOpen(addr string, seid byte) avdtp.ErrorCode       { return 0 }
func (c *cliAVDTPCallback) OnStart(addr string, seids []byte) avdtp.ErrorCode   { return 0 }
func (c *cliAVDTPCallback) OnClose(addr string, seid byte) avdtp.ErrorCode      { return 0 }
func (c *cliAVDTPCallback) OnSuspend(addr string, seids []byte) avdtp.ErrorCode { return 0 }
func (c *cliAVDTPCallback) OnAbort(addr string, seid byte)                     {}
func (c *cliAVDTPCallback) OnSecurityControl(addr string, seid byte, data []byte) ([]byte, avdtp.ErrorCode) {
	return nil, 0
}
func (c *cliAVDTPCallback) OnDelayReport(addr string, seid byte, delay uint16) avdtp.ErrorCode {
	return 0
}

func (c *cliAVDTPCallback) OnCommandResult(addr string, sig avdtp.Signal, err error) {
	if err != nil {
		fmt.Printf("%s failed: %v\n", sig, err)
	} else {
		fmt.Printf("%s ok\n", sig)
	}
	close(c.done)
}

func (c *cliAVDTPCallback) OnTransportFailure(addr string, sig avdtp.Signal, err error) {
	fmt.Printf("%s: transport failure: %v\n", sig, err)
	close(c.done)
}

type cliSMPCallback struct {
	done chan error
}

func (c *cliSMPCallback) IOCapability(addr string) smp.IOCapabilityResponse {
	return smp.IOCapabilityResponse{
		IOCapability: smp.IOCapNoInputNoOutput,
		AuthReq:      smp.AuthReqBonding,
		MaxKeySize:   16,
		InitKeyDist:  smp.KeyDistEnc | smp.KeyDistID,
		RespKeyDist:  smp.KeyDistEnc | smp.KeyDistID,
	}
}

func (c *cliSMPCallback) DisplayPasskey(addr string, passkey uint32) {
	fmt.Printf("enter this passkey on %s: %06d\n", addr, passkey)
}

func (c *cliSMPCallback) RequestPasskey(addr string) {
	fmt.Printf("passkey entry requested for %s but btstackctl has no prompt wired up\n", addr)
}

func (c *cliSMPCallback) ConfirmNumeric(addr string, value uint32) {
	fmt.Printf("numeric comparison %06d requested for %s but btstackctl has no prompt wired up\n", value, addr)
}

func (c *cliSMPCallback) KeypressNotification(addr string, notificationType byte) {}

func (c *cliSMPCallback) PairingComplete(addr string, err error) {
	c.done <- err
}

func (c *cliSMPCallback) EncryptionChanged(addr string, encrypted bool, err error) {
	fmt.Printf("encryption changed for %s: encrypted=%v err=%v\n", addr, encrypted, err)
}
