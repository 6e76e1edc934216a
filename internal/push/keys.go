package push

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/crmsuite/go-messaging-backend/internal/repo"
)

// Settings keys for the persisted VAPID keypair.
const (
	SettingPublicKey  = "vapid_public_key"
	SettingPrivateKey = "vapid_private_key"
)

// KeyStore lazily generates and persists the VAPID keypair. The private half
// is sealed with Secret before it touches the settings table.
type KeyStore struct {
	DB     *gorm.DB
	Secret string

	// now is a test seam.
	now func() time.Time
}

// NewKeyStore builds a KeyStore over the settings table.
func NewKeyStore(db *gorm.DB, secret string) *KeyStore {
	return &KeyStore{DB: db, Secret: secret, now: time.Now}
}

// EnsureKeys returns the VAPID keypair (public, private), generating and
// persisting one on first use. The check-then-write is unguarded: two
// concurrent first calls can each generate a pair and the last write wins.
// That window is accepted; both pairs are valid and subscribers re-fetch the
// public key on registration.
func (k *KeyStore) EnsureKeys(ctx context.Context) (string, string, error) {
	pub, err := repo.GetSetting(ctx, k.DB, SettingPublicKey)
	if err == nil {
		priv, err := repo.GetSetting(ctx, k.DB, SettingPrivateKey)
		if err != nil {
			return "", "", err
		}
		privVal := priv.Value
		if priv.Encrypted {
			if privVal, err = openValue(k.Secret, priv.Value); err != nil {
				return "", "", err
			}
		}
		return pub.Value, privVal, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", "", err
	}

	privKey, pubKey, err := GenerateKeys()
	if err != nil {
		return "", "", err
	}
	sealed, err := sealValue(k.Secret, privKey)
	if err != nil {
		return "", "", err
	}
	if err := repo.PutSetting(ctx, k.DB, SettingPublicKey, pubKey, false); err != nil {
		return "", "", err
	}
	if err := repo.PutSetting(ctx, k.DB, SettingPrivateKey, sealed, true); err != nil {
		return "", "", err
	}
	return pubKey, privKey, nil
}
