package postgres

import "opendata/internal/storage"

func init() {
	// registers the backend factory
	storage.Register("postgres", New)
}
