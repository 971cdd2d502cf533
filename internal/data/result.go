package data

// TorrentResult is one normalized release from a single provider. Results
// are ephemeral: produced per search response and never persisted. ID is
// unique within one aggregated response only.
type TorrentResult struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MagnetLink string `json:"magnetLink"`
	Size       string `json:"size"`
	SizeBytes  int64  `json:"sizeBytes"`
	Seeds      int    `json:"seeds"`
	Peers      int    `json:"peers"`
	Quality    string `json:"quality,omitempty"`
	Codec      string `json:"codec,omitempty"`
	Source     string `json:"source"`
	UploadDate string `json:"uploadDate,omitempty"`
}
