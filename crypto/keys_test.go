package crypto

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAB}, AddressLength)
	addr, err := NewAddress(VBTCPrefix, raw)
	require.NoError(t, err)

	encoded := addr.String()
	require.Contains(t, encoded, string(VBTCPrefix))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.True(t, decoded.Equal(addr))
	require.Equal(t, VBTCPrefix, decoded.Prefix())
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	_, err := NewAddress(VBTCPrefix, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("not-a-bech32-address")
	require.Error(t, err)
}

func TestModuleAddressDeterministic(t *testing.T) {
	first := ModuleAddress("lending")
	second := ModuleAddress("lending")
	require.True(t, first.Equal(second))
	require.Equal(t, ModulePrefix, first.Prefix())

	other := ModuleAddress("market")
	require.False(t, first.Equal(other))
}

func TestDeriveAddressSeparatesSeeds(t *testing.T) {
	owner := bytes.Repeat([]byte{0x01}, AddressLength)

	a := DeriveAddress("vaultbtc/vault", owner, []byte("low"), []byte{0})
	b := DeriveAddress("vaultbtc/vault", owner, []byte("low"), []byte{1})
	c := DeriveAddress("vaultbtc/vault", owner, []byte("high"), []byte{0})
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(c))

	again := DeriveAddress("vaultbtc/vault", owner, []byte("low"), []byte{0})
	require.True(t, a.Equal(again))
}

func TestAddressJSONRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	encoded, err := json.Marshal(addr)
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.True(t, decoded.Equal(addr))

	// Zero value survives the trip as the empty string.
	encoded, err = json.Marshal(Address{})
	require.NoError(t, err)
	var zero Address
	require.NoError(t, json.Unmarshal(encoded, &zero))
	require.True(t, zero.IsZero())
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.True(t, restored.PubKey().Address().Equal(key.PubKey().Address()))
}

func TestKeystoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maintainer.keystore")

	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, SaveToKeystore(path, key, "hunter2"))

	loaded, err := LoadFromKeystore(path, "hunter2")
	require.NoError(t, err)
	require.True(t, loaded.PubKey().Address().Equal(key.PubKey().Address()))

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
