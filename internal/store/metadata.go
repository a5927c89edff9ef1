package store

import "database/sql"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetSeedFileHash returns the recorded content hash for a seed fixture path.
func (s *Store) GetSeedFileHash(path string) (string, error) {
	return s.GetMetadata("seed:" + path)
}

// SetSeedFileHash records the content hash for a seed fixture path.
func (s *Store) SetSeedFileHash(path, hash string) error {
	return s.SetMetadata("seed:"+path, hash)
}
