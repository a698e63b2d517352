package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestF4LengthValidation(t *testing.T) {
	e := New()
	_, err := F4(e, make([]byte, 31), make([]byte, 32), make([]byte, 16), 0)
	require.Error(t, err)
}

func TestF5ProducesDistinctMacKeyAndLTK(t *testing.T) {
	e := New()
	w := make([]byte, 32)
	for i := range w {
		w[i] = byte(i)
	}
	n1 := make([]byte, 16)
	n2 := make([]byte, 16)
	n2[0] = 1
	a1 := []byte{1, 2, 3, 4, 5, 6, 0}
	a2 := []byte{6, 5, 4, 3, 2, 1, 0}

	mk, ltk, err := F5(e, w, n1, n2, a1, a2)
	require.NoError(t, err)
	require.Len(t, mk, 16)
	require.Len(t, ltk, 16)
	require.NotEqual(t, mk, ltk)
}

func TestF5IsDeterministic(t *testing.T) {
	e := New()
	w := make([]byte, 32)
	n1 := make([]byte, 16)
	n2 := make([]byte, 16)
	a1 := make([]byte, 7)
	a2 := make([]byte, 7)

	mk1, ltk1, err := F5(e, w, n1, n2, a1, a2)
	require.NoError(t, err)
	mk2, ltk2, err := F5(e, w, n1, n2, a1, a2)
	require.NoError(t, err)

	require.Equal(t, mk1, mk2)
	require.Equal(t, ltk1, ltk2)
}

func TestG2IsBoundedToSixDigits(t *testing.T) {
	e := New()
	u := make([]byte, 32)
	v := make([]byte, 32)
	x := make([]byte, 16)
	y := make([]byte, 16)

	for i := 0; i < 50; i++ {
		x[0] = byte(i)
		val, err := G2(e, u, v, x, y)
		require.NoError(t, err)
		require.Less(t, val, uint32(1000000))
	}
}

func TestC1AndS1AreDeterministicAndDistinct(t *testing.T) {
	e := New()
	k := make([]byte, 16)
	r := make([]byte, 16)
	r[0] = 0x5a
	preq := make([]byte, 7)
	pres := make([]byte, 7)
	pres[0] = 1
	ia := []byte{1, 2, 3, 4, 5, 6}
	ra := []byte{6, 5, 4, 3, 2, 1}

	c1a, err := C1(e, k, r, preq, pres, 0, 0, ia, ra)
	require.NoError(t, err)
	c1b, err := C1(e, k, r, preq, pres, 0, 0, ia, ra)
	require.NoError(t, err)
	require.Equal(t, c1a, c1b)

	s1, err := S1(e, k, r, r)
	require.NoError(t, err)
	require.Len(t, s1, 16)
	require.NotEqual(t, c1a, s1)
}

func TestH6AndH7LengthValidation(t *testing.T) {
	e := New()
	_, err := H6(e, make([]byte, 15), make([]byte, 4))
	require.Error(t, err)
	_, err = H7(e, make([]byte, 16), make([]byte, 15))
	require.Error(t, err)
}
