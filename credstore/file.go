package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/epitaphe360/shareyoursales-go/internal/errors"
	pkgerrors "github.com/pkg/errors"
)

var _ Store = (*File)(nil)

// File persists credentials to a single file, encrypted with AES-GCM under a
// passphrase-derived key. Writes go through a temp file and atomic rename so
// a crash mid-save never leaves a half-written pair behind.
type File struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

func NewFile(path, passphrase string) (*File, error) {
	if path == "" {
		return nil, pkgerrors.New("[NewFile] path is required")
	}
	if passphrase == "" {
		return nil, pkgerrors.New("[NewFile] passphrase is required")
	}
	return &File{path: path, passphrase: passphrase}, nil
}

func (f *File) Save(creds Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrapf(err, "credstore marshal")
	}

	sealed, err := encrypt(plaintext, f.passphrase)
	if err != nil {
		return errors.Wrapf(err, "credstore encrypt")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrapf(err, "credstore mkdir")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return errors.Wrapf(err, "credstore write")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "credstore rename")
	}
	return nil
}

func (f *File) Load() (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sealed, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Credentials{}, errors.ErrNoStoredCredentials
	}
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "credstore read")
	}

	plaintext, err := decrypt(sealed, f.passphrase)
	if err != nil {
		return Credentials{}, errors.Wrapf(errors.ErrCorruptCredentials, "%v", err)
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return Credentials{}, errors.Wrapf(errors.ErrCorruptCredentials, "unmarshal: %v", err)
	}
	if creds.Empty() {
		return Credentials{}, errors.ErrNoStoredCredentials
	}
	return creds, nil
}

func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "credstore clear")
	}
	return nil
}
