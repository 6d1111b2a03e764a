package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer(strings.Repeat("ab", 32))
	require.NoError(t, err)
	require.True(t, s.Configured())

	sealed, err := s.SealString("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "JBSWY3DPEHPK3PXP")

	opened, err := s.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", opened)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestSealerUnconfigured(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)
	assert.False(t, s.Configured())
	_, err = s.Seal([]byte("x"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSealerRejectsBadKeys(t *testing.T) {
	_, err := NewSealer("c2hvcnQ=")
	assert.Error(t, err)
	_, err = NewSealer("not base64 !!")
	assert.Error(t, err)
}
