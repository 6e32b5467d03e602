package credstore

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptor_RoundTrip(t *testing.T) {
	enc := NewEncryptor("a passphrase of any length")

	sealed, err := enc.Seal([]byte("eyJhbGciOi.payload.sig"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "eyJhbGciOi")

	plain, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.payload.sig", string(plain))

	again, err := enc.Seal([]byte("eyJhbGciOi.payload.sig"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestEncryptor_Rejects(t *testing.T) {
	enc := NewEncryptor("key-one")
	sealed, err := enc.Seal([]byte("token"))
	require.NoError(t, err)

	_, err = NewEncryptor("key-two").Open(sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Open("not base64!")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = enc.Open("AAAA")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = enc.Open(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptedStore_SealsFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	inner := NewFileStore(path)
	store := NewEncryptedStore(inner, NewEncryptor("secret"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, Credentials{Token: "abc", User: annUser}))

	raw, err := inner.Get(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "abc", raw.Token)
	assert.False(t, strings.Contains(string(raw.User), "Ann"))

	creds, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", creds.Token)
	assert.Equal(t, annUser, creds.User)
	assert.Same(t, inner, store.Unwrap())
}

func TestEncryptedStore_WrongKeyIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()

	require.NoError(t, NewEncryptedStore(NewFileStore(path), NewEncryptor("one")).Set(ctx, Credentials{Token: "abc"}))

	_, err := NewEncryptedStore(NewFileStore(path), NewEncryptor("two")).Get(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}
