package crypto

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestParseAddressAcceptsHexAndBech32(t *testing.T) {
	want := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	encoded := FromCommon(want).String()
	require.True(t, strings.HasPrefix(encoded, "swp1"))

	for _, raw := range []string{want.Hex(), strings.ToLower(want.Hex()), encoded, "  " + encoded + " "} {
		got, err := ParseAddress(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got)
	}
}

func TestParseAddressRejectsMalformed(t *testing.T) {
	other, err := NewAddress("tswp", common.HexToAddress("0x01").Bytes())
	require.NoError(t, err)
	for _, raw := range []string{"", "0x1234", "swp1qqqq", other.String()} {
		_, err := ParseAddress(raw)
		require.Error(t, err, raw)
	}
	_, err = NewAddress(SweeperPrefix, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "operator.json")

	require.NoError(t, SaveToKeystoreWithKDF(path, key, "correct horse", LightKDF))
	loaded, err := LoadFromKeystore(path, "correct horse")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address(), loaded.PubKey().Address())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
