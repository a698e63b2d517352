package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAESCMAC(t *testing.T) {
	key := []byte("Stt8Zh+srft8Uv0q26R2FNo/QtQJ+RJL")
	msg := []byte("message")
	want := []byte{206, 52, 198, 186, 125, 62, 93, 46, 130, 150, 87, 239, 31, 97, 228, 37}

	got, err := aesCMAC(key, msg)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestECDHRoundTrip(t *testing.T) {
	e := New()

	privA, pubA, err := e.GenerateKeyPair()
	require.NoError(t, err)
	privB, pubB, err := e.GenerateKeyPair()
	require.NoError(t, err)

	secretA, err := e.ECDH(privA, pubB)
	require.NoError(t, err)
	secretB, err := e.ECDH(privB, pubA)
	require.NoError(t, err)

	require.Equal(t, secretA, secretB)
}

func TestUnmarshalPublicKeyRoundTrip(t *testing.T) {
	e := New()

	_, pub, err := e.GenerateKeyPair()
	require.NoError(t, err)

	wire := e.MarshalPublicKeyXY(pub)
	require.Len(t, wire, 64)

	got, ok := e.UnmarshalPublicKey(wire)
	require.True(t, ok)
	require.Equal(t, wire, e.MarshalPublicKeyXY(got))
}

func TestUnmarshalPublicKeyRejectsShortInput(t *testing.T) {
	e := New()
	_, ok := e.UnmarshalPublicKey(make([]byte, 10))
	require.False(t, ok)
}
