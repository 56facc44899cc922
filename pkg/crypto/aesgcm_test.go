package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestEncryptDecryptAESGCM(t *testing.T) {
	sealed, err := EncryptAESGCM(testKeyHex, []byte("bearer-token"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "bearer-token")

	plain, err := DecryptAESGCM(testKeyHex, sealed)
	require.NoError(t, err)
	assert.Equal(t, "bearer-token", string(plain))
}

func TestDecryptAESGCM_WrongKey(t *testing.T) {
	sealed, err := EncryptAESGCM(testKeyHex, []byte("bearer-token"))
	require.NoError(t, err)

	otherKey := strings.Repeat("ab", 32)
	_, err = DecryptAESGCM(otherKey, sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptAESGCM_Malformed(t *testing.T) {
	_, err := DecryptAESGCM(testKeyHex, "not base64!!")
	assert.ErrorIs(t, err, ErrInvalidSealedValue)

	_, err = DecryptAESGCM(testKeyHex, "AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey(testKeyHex))
	assert.ErrorIs(t, ValidateKey("abcd"), ErrInvalidAESKeySize)
	assert.Error(t, ValidateKey("zz"))
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", Fingerprint(""))
	fp := Fingerprint("abc")
	assert.Len(t, fp, 12)
	assert.Equal(t, Sha256Hex("abc")[:12], fp)
}
