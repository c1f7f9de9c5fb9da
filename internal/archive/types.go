package archive

// ManifestEntry is one line in the monthly JSONL manifest of archived
// exports.
type ManifestEntry struct {
	Name       string `json:"name"`
	S3Key      string `json:"s3_key"`
	Rows       int    `json:"rows"`
	Filter     string `json:"filter,omitempty"`
	ExportedBy string `json:"exported_by,omitempty"`
	ArchivedAt string `json:"archived_at"`
}

// Export is a rendered CSV export handed to the store.
type Export struct {
	Name       string
	Body       []byte
	Rows       int
	Filter     string
	ExportedBy string
}
