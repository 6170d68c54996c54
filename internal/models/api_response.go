package models

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ProcessImagesResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	TotalImages int    `json:"totalImages"`
	RequestID   string `json:"requestId"`
}

type UpdateImageRequest struct {
	BatchID    string         `json:"batchId"`
	ItemID     string         `json:"_id" binding:"required"`
	ImagePath  string         `json:"imagePath" binding:"required"`
	UpdateData MetadataUpdate `json:"updateData"`
}

type UpdateImageResponse struct {
	Success       bool           `json:"success"`
	UpdatedFields []string       `json:"updatedFields"`
	Metadata      MetadataRecord `json:"metadata"`
}
