package types

import "time"

// StoredFileRecord is one entry of the metadata index, appended after the
// finalizer confirms the move into durable storage.
type StoredFileRecord struct {
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	Size      int64     `json:"size"`
	Extension string    `json:"extension"`
	StoredAt  time.Time `json:"stored_at"`
}
