// Package models holds the wire-level types shared by the server, the
// storage and compute drivers, and the client.
package models

// AssetInfo describes a single entry in a manifest: the content hash of the
// blob backing a logical path, its size, and an optional mime type.
type AssetInfo struct {
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// Manifest is the source of truth for a published version. It maps logical
// asset paths (e.g. "textures/grass.png") to content-addressed blobs.
type Manifest struct {
	Version  string               `json:"version"`
	Assets   map[string]AssetInfo `json:"assets"`
	Metadata map[string]string    `json:"metadata,omitempty"`
}
