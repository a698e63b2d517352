package crypto

import (
	"crypto/aes"

	"github.com/aead/cmac"

	"github.com/rigado/btstack/sliceops"
)

// aesCMAC mirrors linux/hci/smp/util.go in the teacher repository: the
// Bluetooth SMP functions specify their inputs and outputs in big-endian
// ("most significant octet first"), while aead/cmac and crypto/aes both
// operate on Go's native byte order, so every key and message is
// byte-swapped going in and the digest is swapped again coming out.
func aesCMAC(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(sliceops.SwapBuf(key))
	if err != nil {
		return nil, err
	}

	mac, err := cmac.New(block)
	if err != nil {
		return nil, err
	}

	mac.Write(sliceops.SwapBuf(msg))

	return sliceops.SwapBuf(mac.Sum(nil)), nil
}

// aes128 performs a raw single-block AES-128 ECB encryption, used directly
// by the legacy c1/s1 confirm-value functions (Core Spec Vol 3 Part H 2.2.3).
func aes128(key, block []byte) ([]byte, error) {
	cph, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	cph.Encrypt(out, block)
	return out, nil
}
