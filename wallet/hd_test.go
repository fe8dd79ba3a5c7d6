package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestParsePath(t *testing.T) {
	tests := []struct {
		path string
		want []uint32
	}{
		{"m", []uint32{}},
		{"m/0", []uint32{0}},
		{"m/44'/0'/0'/0/0", []uint32{44 + Hardened, Hardened, Hardened, 0, 0}},
		{"m/44h/145h/1h/1/7", []uint32{44 + Hardened, 145 + Hardened, 1 + Hardened, 1, 7}},
		{"M/2147483647", []uint32{2147483647}},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, err := ParsePath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePathInvalid(t *testing.T) {
	for _, path := range []string{"", "44'/0'", "m/", "m/x", "m/-1", "m/2147483648", "m/0''"} {
		t.Run(path, func(t *testing.T) {
			_, err := ParsePath(path)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestFormatPath(t *testing.T) {
	indices, err := ParsePath("m/44h/145h/0h/0/3")
	require.NoError(t, err)
	assert.Equal(t, "m/44'/145'/0'/0/3", FormatPath(indices))
}

func TestDeriveKey(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	kp, err := DeriveKey(seed, &MainNet, DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, kp.Path)
	assert.Equal(t, "L4p2b9VAf8k5aUahF1JCJUzZkgNEAqLfq8DDdQiyAprQAKSbu8hf", kp.PrivateKey.WifPrefix(MainNet.WIFPrefix))

	// The network only changes serialization, not the derived key.
	reg, err := DeriveKey(seed, &RegTest, DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey.Serialize(), reg.PrivateKey.Serialize())
}

func TestDeriveKeyErrors(t *testing.T) {
	_, err := DeriveKey(nil, &MainNet, DefaultPath)
	assert.ErrorIs(t, err, ErrInvalidSeed)

	_, err = DeriveKey([]byte{1, 2, 3}, &MainNet, "bad")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
