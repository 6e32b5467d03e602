package credstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecryptionFailed is returned when a sealed entry cannot be opened,
// either because it was tampered with or the key changed.
var ErrDecryptionFailed = errors.New("credstore: decryption failed")

// Encryptor seals values with AES-256-GCM. The key is the SHA-256 of the
// configured secret.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor from an arbitrary-length secret.
func NewEncryptor(secret string) *Encryptor {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// A 32-byte key is always valid for AES.
		panic(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	return &Encryptor{aead: aead}
}

// Seal encrypts plaintext and returns base64([nonce][ciphertext]).
func (e *Encryptor) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("credstore: failed to generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptedStore seals both entries before handing them to the wrapped store.
type EncryptedStore struct {
	store     Store
	encryptor *Encryptor
}

// NewEncryptedStore wraps store.
func NewEncryptedStore(store Store, encryptor *Encryptor) *EncryptedStore {
	return &EncryptedStore{store: store, encryptor: encryptor}
}

// Get opens the stored entries.
func (s *EncryptedStore) Get(ctx context.Context) (Credentials, error) {
	sealed, err := s.store.Get(ctx)
	if err != nil || sealed.Empty() {
		return sealed, err
	}

	token, err := s.encryptor.Open(sealed.Token)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: token: %v", ErrCorrupt, err)
	}

	creds := Credentials{Token: string(token)}
	if sealed.User != nil {
		user, err := s.encryptor.Open(string(sealed.User))
		if err != nil {
			return Credentials{}, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
		}
		creds.User = user
	}
	return creds, nil
}

// Set seals and stores the entries.
func (s *EncryptedStore) Set(ctx context.Context, creds Credentials) error {
	if creds.Empty() {
		return s.store.Clear(ctx)
	}

	token, err := s.encryptor.Seal([]byte(creds.Token))
	if err != nil {
		return err
	}

	sealed := Credentials{Token: token}
	if creds.User != nil {
		user, err := s.encryptor.Seal(creds.User)
		if err != nil {
			return err
		}
		sealed.User = []byte(user)
	}

	return s.store.Set(ctx, sealed)
}

// Clear removes both entries.
func (s *EncryptedStore) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Close closes the wrapped store.
func (s *EncryptedStore) Close() error {
	return s.store.Close()
}

// Unwrap returns the wrapped store.
func (s *EncryptedStore) Unwrap() Store {
	return s.store
}
