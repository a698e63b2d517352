package crypto

import (
	"encoding/binary"
	"fmt"
)

// This file implements the SMP key-derivation functions defined in Core
// Spec Vol 3 Part H §2.2.3 (legacy c1/s1) and §2.2.7 (Secure Connections
// f4/f5/f6/g2/h6/h7). They are built entirely out of Engine's AES-CMAC and
// AES-128 primitives, the same way linux/hci/smp_crypto.go in the teacher
// repository built them out of its own aesCMAC helper.

// F4 computes the commitment function f4(U, V, X, Z) = AES-CMAC_X(U || V || Z).
// U and V are 32-byte public-key coordinates, X is a 16-byte key, Z is one byte.
func F4(e Engine, u, v, x []byte, z byte) ([]byte, error) {
	if len(u) != 32 || len(v) != 32 || len(x) != 16 {
		return nil, fmt.Errorf("crypto: f4 length error")
	}
	m := []byte{z}
	m = append(m, v...)
	m = append(m, u...)
	return e.AESCMAC(x, m)
}

// f5 constants, least-significant octet first like every other input here.
var (
	f5Salt       = []byte{0xbe, 0x83, 0x60, 0x5a, 0xdb, 0x0b, 0x37, 0x60, 0x38, 0xa5, 0xf5, 0xaa, 0x91, 0x83, 0x88, 0x6c}
	f5KeyID      = []byte{0x65, 0x6c, 0x74, 0x62}
	f5LengthBits = []byte{0x00, 0x01}
)

// F5 computes MacKey || LTK = f5(W, N1, N2, A1, A2) per §2.2.7. The CMAC
// message is assembled least-significant octet first
// (Length||A2||A1||N2||N1||keyID||Counter), and the two calls differ only
// in the trailing counter octet.
func F5(e Engine, w, n1, n2, a1, a2 []byte) (macKey, ltk []byte, err error) {
	switch {
	case len(w) != 32:
		return nil, nil, fmt.Errorf("crypto: f5 length error w")
	case len(n1) != 16:
		return nil, nil, fmt.Errorf("crypto: f5 length error n1")
	case len(n2) != 16:
		return nil, nil, fmt.Errorf("crypto: f5 length error n2")
	case len(a1) != 7:
		return nil, nil, fmt.Errorf("crypto: f5 length error a1")
	case len(a2) != 7:
		return nil, nil, fmt.Errorf("crypto: f5 length error a2")
	}

	t, err := e.AESCMAC(f5Salt, w)
	if err != nil {
		return nil, nil, err
	}

	m := append([]byte{}, f5LengthBits...)
	m = append(m, a2...)
	m = append(m, a1...)
	m = append(m, n2...)
	m = append(m, n1...)
	m = append(m, f5KeyID...)
	m = append(m, 0x00)

	macKey, err = e.AESCMAC(t, m)
	if err != nil {
		return nil, nil, err
	}

	m[len(m)-1] = 0x01
	ltk, err = e.AESCMAC(t, m)
	if err != nil {
		return nil, nil, err
	}

	return macKey, ltk, nil
}

// F6 computes f6(W, N1, N2, R, IOcap, A1, A2) = AES-CMAC_W(N1||N2||R||IOcap||A1||A2),
// the DHKey-check function of §2.2.7. The message is assembled
// least-significant octet first (A2||A1||IOcap||R||N2||N1).
func F6(e Engine, w, n1, n2, r, ioCap, a1, a2 []byte) ([]byte, error) {
	if len(w) != 16 || len(n1) != 16 || len(n2) != 16 || len(r) != 16 || len(ioCap) != 3 || len(a1) != 7 || len(a2) != 7 {
		return nil, fmt.Errorf("crypto: f6 length error")
	}
	m := append([]byte{}, a2...)
	m = append(m, a1...)
	m = append(m, ioCap...)
	m = append(m, r...)
	m = append(m, n2...)
	m = append(m, n1...)
	return e.AESCMAC(w, m)
}

// G2 computes the numeric-comparison value g2(U, V, X, Y) = AES-CMAC_X(U||V||Y) mod 10^6,
// assembling the message least-significant octet first (Y||V||U) and
// reducing the low 32 bits of the digest.
func G2(e Engine, u, v, x, y []byte) (uint32, error) {
	if len(u) != 32 || len(v) != 32 || len(x) != 16 || len(y) != 16 {
		return 0, fmt.Errorf("crypto: g2 length error")
	}
	m := append([]byte{}, y...)
	m = append(m, v...)
	m = append(m, u...)
	h, err := e.AESCMAC(x, m)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(h[:4]) % 1000000, nil
}

// H6 computes h6(W, keyID) = AES-CMAC_W(keyID), used for cross-transport key
// derivation (Core Spec Vol 3 Part H §2.2.8) when H7_SUPPORT is not negotiated.
func H6(e Engine, w, keyID []byte) ([]byte, error) {
	if len(w) != 16 || len(keyID) != 4 {
		return nil, fmt.Errorf("crypto: h6 length error")
	}
	return e.AESCMAC(w, keyID)
}

// H7 computes h7(salt, W) = AES-CMAC_salt(W), the SALT-keyed variant of h6
// used when both sides advertise H7_SUPPORT_BIT.
func H7(e Engine, salt, w []byte) ([]byte, error) {
	if len(salt) != 16 || len(w) != 16 {
		return nil, fmt.Errorf("crypto: h7 length error")
	}
	return e.AESCMAC(salt, w)
}

// C1 computes the legacy confirm value
//
//	c1(k, r, preq, pres, iat, rat, ia, ra) = e(k, e(k, r XOR p1) XOR p2)
//
// with p1 = pres || preq || rat || iat and p2 = 0x00000000 || ia || ra,
// per Core Spec Vol 3 Part H §2.2.3.
func C1(e Engine, k, r, preq, pres []byte, iat, rat byte, ia, ra []byte) ([]byte, error) {
	if len(k) != 16 || len(r) != 16 || len(preq) != 7 || len(pres) != 7 || len(ia) != 6 || len(ra) != 6 {
		return nil, fmt.Errorf("crypto: c1 length error")
	}

	p1 := append([]byte{}, pres...)
	p1 = append(p1, preq...)
	p1 = append(p1, rat, iat)

	p1xr := xor(r, p1)
	step1, err := e.AES128(k, p1xr)
	if err != nil {
		return nil, err
	}

	p2 := []byte{0x00, 0x00, 0x00, 0x00}
	p2 = append(p2, ia...)
	p2 = append(p2, ra...)

	p2xStep1 := xor(step1, p2)
	return e.AES128(k, p2xStep1)
}

// S1 computes the legacy STK derivation s1(k, r1, r2) = e(k, r1' || r2'),
// where r1'/r2' are the low 8 octets of r1/r2.
func S1(e Engine, k, r1, r2 []byte) ([]byte, error) {
	if len(k) != 16 || len(r1) != 16 || len(r2) != 16 {
		return nil, fmt.Errorf("crypto: s1 length error")
	}
	block := append([]byte{}, r1[8:]...)
	block = append(block, r2[8:]...)
	return e.AES128(k, block)
}

func xor(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
