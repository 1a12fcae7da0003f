package db

import (
	"database/sql"
)

// GetValue retrieves a value by key. found is false when the key was never set.
func (d *DB) GetValue(key string) (string, bool, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetValue updates or creates a value
func (d *DB) SetValue(key, value string) error {
	_, err := d.Run(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, NowMs())
	return err
}

// ValuesWithPrefix returns every key/value pair whose key starts with prefix
func (d *DB) ValuesWithPrefix(prefix string) (map[string]string, error) {
	type pair struct{ key, value string }

	rows, err := Select(d,
		`SELECT key, value FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		[]QueryParam{prefix, prefix},
		func(rows *sql.Rows) (pair, error) {
			var p pair
			err := rows.Scan(&p.key, &p.value)
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(rows))
	for _, p := range rows {
		result[p.key] = p.value
	}
	return result, nil
}
