package models

// UploadedItem is a file staged on disk for the duration of one batch.
type UploadedItem struct {
	OriginalName string `json:"original_name"`
	MIMEType     string `json:"mime_type"`
	Extension    string `json:"extension"`
	TempPath     string `json:"temp_path"`
	Size         int64  `json:"size"`
}
