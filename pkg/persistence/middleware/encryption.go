package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
)

// EnvelopeField is the only key of an encrypted session's Fields.
const EnvelopeField = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte

	// AllowPlaintext accepts sessions written before encryption was enabled.
	// They are re-encrypted on their next save.
	AllowPlaintext bool
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts the collected
// answers using AES-GCM (Envelope Encryption). The state, version and timestamp
// stay readable so operators can inspect where a participant is.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return withLister(&encryptionMiddleware{
			next:   next,
			config: config,
		}, next)
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, participantID string, sess *domain.Session) error {
	if sess == nil || !sess.State.Active() {
		return m.next.Save(ctx, participantID, sess)
	}

	plainText, err := json.Marshal(sess.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	// The participant id is bound as additional data, so an envelope copied
	// onto another participant's key fails to open.
	ciphertext, err := encrypt(plainText, m.config.ActiveKey, []byte(participantID))
	if err != nil {
		return fmt.Errorf("failed to encrypt fields: %w", err)
	}

	envelope := &domain.Session{
		ParticipantID: sess.ParticipantID,
		State:         sess.State,
		Version:       sess.Version,
		UpdatedAt:     sess.UpdatedAt,
		Fields: map[string]any{
			EnvelopeField: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}
	return m.next.Save(ctx, participantID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	envelope, err := m.next.Load(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !envelope.State.Active() {
		return envelope, nil
	}

	encryptedStr, ok := envelope.Fields[EnvelopeField].(string)
	if !ok {
		if m.config.AllowPlaintext {
			return envelope, nil
		}
		// Fail secure: a plain session under an encrypting store was not written by us.
		return nil, fmt.Errorf("%w: session is missing encrypted data envelope", domain.ErrStoreUnavailable)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext base64: %w", domain.ErrStoreUnavailable, err)
	}

	plainText, err := decryptWithRotation(ciphertext, []byte(participantID), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt session: %w", domain.ErrStoreUnavailable, err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(plainText, &fields); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal decrypted fields: %w", domain.ErrStoreUnavailable, err)
	}

	sess := *envelope
	sess.Fields = fields
	return &sess, nil
}

func (m *encryptionMiddleware) Clear(ctx context.Context, participantID string) error {
	return m.next.Clear(ctx, participantID)
}

// Helpers

func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, aad); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, aad); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, aad)
}
