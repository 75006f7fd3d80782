package scryfall

import (
	"time"

	"github.com/goccy/go-json"
)

// bulkDataObject is one entry of the /bulk-data catalog. Only download_uri
// and type take part in the selection; updated_at and size are informational
// and kept raw so that an unexpected value never fails the lookup.
type bulkDataObject struct {
	Type        string          `json:"type"`
	DownloadURI string          `json:"download_uri"`
	UpdatedAt   json.RawMessage `json:"updated_at"`
	Size        json.RawMessage `json:"size"`
}

// updatedAt returns the parsed updated_at, or nil if it is absent or not an
// RFC 3339 timestamp.
func (o bulkDataObject) updatedAt() *time.Time {
	var t time.Time
	if absent(o.UpdatedAt) || json.Unmarshal(o.UpdatedAt, &t) != nil {
		return nil
	}
	return &t
}

// size returns the reported size in bytes, or 0 if it is absent or not a
// non-negative integer.
func (o bulkDataObject) size() int64 {
	var n int64
	if absent(o.Size) || json.Unmarshal(o.Size, &n) != nil || n < 0 {
		return 0
	}
	return n
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// catalogResponse covers both shapes the endpoint returns: a single bulk data
// object (/bulk-data/<type>) or a list under "data" (/bulk-data).
type catalogResponse struct {
	bulkDataObject
	Data []bulkDataObject `json:"data"`
}
