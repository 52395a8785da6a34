// Package settings persists user preferences and credentials. Secrets are
// encrypted at rest through the secrets codec; everything else is stored
// as plain JSON in a single sqlite row.
package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"mastothread/internal/adapters/secrets"
	"mastothread/internal/domain"
)

// patternServer strips scheme, path and anything after the hostname from
// user input.
var patternServer = regexp.MustCompile(`^(?:https?://)?([-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9]{1,6})\b.*$`)

// NormalizeServer reduces user input like "https://mastodon.social/home"
// to the bare hostname. Input without a recognizable host is returned
// as-is; validation happens at connect time.
func NormalizeServer(input string) string {
	if m := patternServer.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return input
}

// Store keeps one JSON settings blob in sqlite.
type Store struct {
	db    *sql.DB
	codec *secrets.Codec
}

const settingsKey = "settings"

// Open creates or opens the settings database at path.
func Open(path string, codec *secrets.Codec) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings db: %w", err)
	}
	return &Store{db: db, codec: codec}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the persisted settings, decrypting secrets. A missing row
// yields defaults. When a secret fails to decrypt (seed changed, file
// copied between machines) the credentials are cleared and the user is
// back to a disconnected state instead of a hard failure.
func (s *Store) Load() (domain.Settings, error) {
	loaded := domain.DefaultSettings()

	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return loaded, nil
	}
	if err != nil {
		return loaded, fmt.Errorf("load settings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		return domain.DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}

	clientSecret, err1 := s.codec.Decrypt(loaded.ClientSecret)
	accessToken, err2 := s.codec.Decrypt(loaded.AccessToken)
	if err1 != nil || err2 != nil {
		loaded.ClientSecret = ""
		loaded.AccessToken = ""
		return loaded, nil
	}
	loaded.ClientSecret = clientSecret
	loaded.AccessToken = accessToken
	return loaded, nil
}

// Save persists the settings with encrypted secrets.
func (s *Store) Save(in domain.Settings) error {
	var err error
	if in.ClientSecret, err = s.codec.Encrypt(in.ClientSecret); err != nil {
		return fmt.Errorf("encrypt client secret: %w", err)
	}
	if in.AccessToken, err = s.codec.Encrypt(in.AccessToken); err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingsKey, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
