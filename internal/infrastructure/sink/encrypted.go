package sink

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

const (
	saltFile   = "salt"
	latestFile = "todos_latest.enc"

	saltLength = 16
	keyLength  = 32

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// EncryptedSink stores AES-256-GCM encrypted snapshots of each delivered
// batch on local disk. The key is derived from a passphrase with argon2id;
// the salt persists beside the snapshots so restarts derive the same key.
// Append-only: every batch becomes a new snapshot file plus a refreshed
// todos_latest.enc.
type EncryptedSink struct {
	dir  string
	aead cipher.AEAD
	now  func() time.Time
}

var _ ports.Sink = (*EncryptedSink)(nil)

// Snapshot is the decrypted payload of one stored batch.
type Snapshot struct {
	ID      string         `json:"id"`
	SavedAt time.Time      `json:"saved_at"`
	Label   string         `json:"label"`
	Items   []SnapshotItem `json:"items"`
}

// SnapshotItem mirrors a canonical item in serialized form.
type SnapshotItem struct {
	Action   string `json:"action"`
	Details  string `json:"details,omitempty"`
	Priority string `json:"priority"`
	Deadline string `json:"deadline,omitempty"`
}

// NewEncryptedSink derives the key and prepares the storage directory.
func NewEncryptedSink(dir, passphrase string) (*EncryptedSink, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, keyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("build gcm: %w", err)
	}

	return &EncryptedSink{dir: dir, aead: aead, now: time.Now}, nil
}

// Name identifies the sink in logs and write results.
func (s *EncryptedSink) Name() string {
	return "encrypted"
}

// Write seals the batch into a timestamped snapshot and refreshes the latest
// pointer file.
func (s *EncryptedSink) Write(ctx context.Context, items []domain.CanonicalItem, label string) error {
	snap := Snapshot{
		ID:      uuid.NewString(),
		SavedAt: s.now().UTC(),
		Label:   label,
		Items:   make([]SnapshotItem, 0, len(items)),
	}
	for _, item := range items {
		snap.Items = append(snap.Items, SnapshotItem{
			Action:   item.Action,
			Details:  item.Details,
			Priority: string(item.Priority),
			Deadline: item.Deadline,
		})
	}

	plaintext, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	sealed, err := s.seal(plaintext)
	if err != nil {
		return err
	}

	// The uuid keeps names unique when two batches land in the same second.
	name := fmt.Sprintf("todos_%s_%s.enc", snap.SavedAt.Format("20060102_150405"), snap.ID)
	if err := os.WriteFile(filepath.Join(s.dir, name), sealed, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, latestFile), sealed, 0o600); err != nil {
		return fmt.Errorf("write latest snapshot: %w", err)
	}

	return nil
}

// LoadLatest decrypts the most recent snapshot, or returns nil when none has
// been written yet.
func (s *EncryptedSink) LoadLatest() (*Snapshot, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, latestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read latest snapshot: %w", err)
	}

	plaintext, err := s.open(sealed)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *EncryptedSink) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *EncryptedSink) open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("snapshot too short")
	}
	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot: %w", err)
	}
	return plaintext, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltLength {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	salt = make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt: %w", err)
	}
	return salt, nil
}
