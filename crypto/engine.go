// Package crypto adapts the narrow crypto collaborator described in §6 of
// the design ("Crypto primitives (consumed): ... treated as pure functions")
// into a small interface plus the concrete implementation the teacher
// repository's SMP package used: AES-CMAC via github.com/aead/cmac and
// P-256 ECDH via github.com/wsddn/go-ecdh.
package crypto

import (
	"crypto"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	ecdhlib "github.com/wsddn/go-ecdh"

	"github.com/rigado/btstack/sliceops"
)

// PublicKey is an opaque P-256 public key, as produced by GenerateKeyPair
// or UnmarshalPublicKey.
type PublicKey = crypto.PublicKey

// PrivateKey is an opaque P-256 private key.
type PrivateKey = crypto.PrivateKey

// Engine is the narrow crypto surface the SMP package depends on. The
// default implementation (New) wires the teacher's libraries; smp's
// OptCryptoEngine substitutes another implementation.
type Engine interface {
	// GenerateKeyPair produces a fresh P-256 key pair for one pairing attempt.
	GenerateKeyPair() (PrivateKey, PublicKey, error)
	// MarshalPublicKeyXY returns the 64-byte little-endian X||Y encoding used on the wire.
	MarshalPublicKeyXY(PublicKey) []byte
	// MarshalPublicKeyX returns just the 32-byte little-endian X coordinate.
	MarshalPublicKeyX(PublicKey) []byte
	// UnmarshalPublicKey parses the 64-byte wire encoding, validating that the
	// point lies on P-256 (Core Spec "ECC_ValidatePoint"). ok is false on any
	// off-curve or malformed input.
	UnmarshalPublicKey(b []byte) (pub PublicKey, ok bool)
	// ECDH computes the shared secret (DHKey) for a local private key and peer public key.
	ECDH(priv PrivateKey, peerPub PublicKey) ([]byte, error)
	// AESCMAC computes AES-CMAC(key, msg) per RFC 4493, operating on
	// Bluetooth's little-endian byte order (the implementation handles the
	// big-endian/little-endian swap internally).
	AESCMAC(key, msg []byte) ([]byte, error)
	// AES128 performs a single-block AES-128 ECB encryption, used by legacy c1/s1.
	AES128(key, block []byte) ([]byte, error)
	// Rand returns n cryptographically random bytes (used for nonces, TK fallback, etc).
	Rand(n int) ([]byte, error)
}

// New returns the default Engine: AES-CMAC from github.com/aead/cmac and
// P-256 ECDH from github.com/wsddn/go-ecdh, exactly as the teacher's
// smp package wired them (linux/hci/smp/util.go, linux/hci/smp/ecdh.go).
func New() Engine {
	return &defaultEngine{}
}

type defaultEngine struct{}

func (defaultEngine) GenerateKeyPair() (PrivateKey, PublicKey, error) {
	e := ecdhlib.NewEllipticECDH(elliptic.P256())
	priv, pub, err := e.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func (defaultEngine) MarshalPublicKeyXY(pub PublicKey) []byte {
	e := ecdhlib.NewEllipticECDH(elliptic.P256())
	ba := e.Marshal(pub)
	ba = ba[1:] // drop the 0x04 uncompressed-point header
	x := sliceops.SwapBuf(ba[:32])
	y := sliceops.SwapBuf(ba[32:])
	return append(x, y...)
}

func (defaultEngine) MarshalPublicKeyX(pub PublicKey) []byte {
	e := ecdhlib.NewEllipticECDH(elliptic.P256())
	ba := e.Marshal(pub)
	ba = ba[1:]
	return sliceops.SwapBuf(ba[:32])
}

func (defaultEngine) UnmarshalPublicKey(b []byte) (PublicKey, bool) {
	if len(b) != 64 {
		return nil, false
	}
	e := ecdhlib.NewEllipticECDH(elliptic.P256())
	xs := sliceops.SwapBuf(b[:32])
	ys := sliceops.SwapBuf(b[32:])
	r := append([]byte{0x04}, xs...)
	r = append(r, ys...)
	return e.Unmarshal(r)
}

func (defaultEngine) ECDH(priv PrivateKey, peerPub PublicKey) ([]byte, error) {
	e := ecdhlib.NewEllipticECDH(elliptic.P256())
	secret, err := e.GenerateSharedSecret(priv, peerPub)
	if err != nil {
		return nil, err
	}
	return sliceops.SwapBuf(secret), nil
}

func (defaultEngine) Rand(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (defaultEngine) AESCMAC(key, msg []byte) ([]byte, error) {
	return aesCMAC(key, msg)
}

func (defaultEngine) AES128(key, block []byte) ([]byte, error) {
	if len(block) != 16 {
		return nil, fmt.Errorf("crypto: AES128 requires a 16-byte block, got %d", len(block))
	}
	return aes128(key, block)
}
