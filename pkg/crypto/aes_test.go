package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	a, err := s.Seal("pi_3NxYz")
	require.NoError(t, err)
	b, err := s.Seal("pi_3NxYz")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per call")

	plain, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "pi_3NxYz", plain)
}

func TestSealerWrongKey(t *testing.T) {
	s1, err := NewSealer(testKey)
	require.NoError(t, err)
	s2, err := NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)

	enc, err := s1.Seal("secret")
	require.NoError(t, err)

	_, err = s2.Open(enc)
	assert.Error(t, err)

	_, err = s1.Open("AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDeriveKeyValidation(t *testing.T) {
	_, err := DeriveKey("zz")
	assert.Error(t, err)
	_, err = DeriveKey("abcd")
	assert.ErrorContains(t, err, "32 bytes")
}
