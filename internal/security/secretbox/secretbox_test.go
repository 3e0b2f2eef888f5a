package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	box, err := Parse(base64.StdEncoding.EncodeToString(testKey(1)))
	require.NoError(t, err)

	ct, err := box.Encrypt("client secret ✓")
	require.NoError(t, err)
	pt, err := box.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "client secret ✓", pt)
}

func TestParse_HexAndRawKeysAreEquivalent(t *testing.T) {
	k := testKey(7)
	fromHex, err := Parse(hex.EncodeToString(k))
	require.NoError(t, err)
	fromB64, err := Parse(base64.RawStdEncoding.EncodeToString(k))
	require.NoError(t, err)

	ct, err := fromHex.Encrypt("x")
	require.NoError(t, err)
	pt, err := fromB64.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "x", pt)
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	box, err := New(testKey(200))
	require.NoError(t, err)

	ct, err := box.Encrypt("top secret")
	require.NoError(t, err)
	parts := strings.Split(ct, "|")
	require.Len(t, parts, 2)

	bs, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	bs[0] ^= 0x01
	_, err = box.Decrypt(parts[0] + "|" + base64.StdEncoding.EncodeToString(bs))
	require.Error(t, err)
}

func TestDecrypt_RejectsBadFormat(t *testing.T) {
	box, err := New(testKey(3))
	require.NoError(t, err)
	_, err = box.Decrypt("plain-secret")
	require.ErrorIs(t, err, ErrFormat)
}

func TestParse_RejectsShortKey(t *testing.T) {
	_, err := Parse("too-short")
	require.Error(t, err)
	_, err = Parse("")
	require.Error(t, err)
}
