// Package account implements the persistent player account store.
//
// Accounts are kept in a TOML file with one table per account and are loaded
// once at startup. All mutation goes through the store, which serializes
// concurrent access; the file is rewritten on Persist.
package account

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Store is the account access contract consumed by sessions.
type Store interface {
	Authenticate(username, password string) bool
	Exists(username string) bool
	AddScore(username string, delta int) (int, error)
	Score(username string) (int, error)
	Highscores() []Entry
	Persist() error
}

// Entry is one row of the highscore table.
type Entry struct {
	Username string
	Score    int
}

// Account is the persisted record for one player.
type Account struct {
	Password string `toml:"password"`
	Score    int    `toml:"score"`
}

type fileSchema struct {
	Accounts map[string]Account `toml:"accounts"`
}

// FileStore is a TOML-file-backed Store. Safe for concurrent use.
type FileStore struct {
	path     string
	mu       sync.RWMutex
	accounts map[string]Account
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads the account file at path, seeding a default set of
// accounts if the file does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(err, "read accounts file failed")
		}
		logger.WithField("path", path).Warning("accounts file not found, seeding default accounts")
		s.accounts = defaultAccounts()
		return s, nil
	}
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse accounts file failed")
	}
	s.accounts = file.Accounts
	if s.accounts == nil {
		s.accounts = make(map[string]Account)
	}
	logger.WithFields(logrus.Fields{
		"path":  path,
		"count": len(s.accounts),
	}).Info("loaded accounts")
	return s, nil
}

func defaultAccounts() map[string]Account {
	return map[string]Account{
		"test":   {Password: "test", Score: 0},
		"yossi":  {Password: "123", Score: 50},
		"master": {Password: "master", Score: 200},
	}
}

// Exists reports whether an account with the given username exists.
func (s *FileStore) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[username]
	return ok
}

// Authenticate reports whether the username exists and the password matches.
func (s *FileStore) Authenticate(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[username]
	return ok && acct.Password == password
}

// AddScore adds delta to the user's score and returns the new total.
func (s *FileStore) AddScore(username string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[username]
	if !ok {
		return 0, errors.Wrapf(ErrAccountNotFound, "username %q", username)
	}
	acct.Score += delta
	s.accounts[username] = acct
	return acct.Score, nil
}

// Score returns the user's current score.
func (s *FileStore) Score(username string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[username]
	if !ok {
		return 0, errors.Wrapf(ErrAccountNotFound, "username %q", username)
	}
	return acct.Score, nil
}

// Highscores returns all accounts ordered by score, highest first. Ties are
// broken by username so the order is stable.
func (s *FileStore) Highscores() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.accounts))
	for username, acct := range s.accounts {
		entries = append(entries, Entry{Username: username, Score: acct.Score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	return entries
}

// Persist writes the current accounts to the backing file. The write goes
// through a temp file and a rename so a crash cannot leave a torn file.
func (s *FileStore) Persist() error {
	s.mu.RLock()
	file := fileSchema{Accounts: make(map[string]Account, len(s.accounts))}
	for username, acct := range s.accounts {
		file.Accounts[username] = acct
	}
	s.mu.RUnlock()

	data, err := toml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, "marshal accounts failed")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create accounts directory failed")
	}
	tmp, err := os.CreateTemp(dir, ".accounts-*")
	if err != nil {
		return errors.Wrap(err, "create temp accounts file failed")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write temp accounts file failed")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close temp accounts file failed")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "replace accounts file failed")
	}
	return nil
}
