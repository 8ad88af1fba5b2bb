package models

import "time"

// FileUpload represents the file_uploads table
type FileUpload struct {
	FileID       int       `gorm:"primaryKey;column:file_id" json:"file_id"`
	OriginalName string    `gorm:"column:original_name" json:"original_name"`
	StoredPath   string    `gorm:"column:stored_path" json:"-"`
	FileSize     int64     `gorm:"column:file_size" json:"file_size"`
	MimeType     string    `gorm:"column:mime_type" json:"mime_type"`
	FileHash     string    `gorm:"column:file_hash" json:"file_hash"`
	Stage        string    `gorm:"column:stage;size:16" json:"stage"` // initial|final
	UploadedBy   int       `gorm:"column:uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// Upload stages.
const (
	FileStageInitial = "initial"
	FileStageFinal   = "final"
)

// TableName overrides
func (FileUpload) TableName() string {
	return "file_uploads"
}

// IsAllowedMimeType reports whether the file's MIME type appears in allowed.
// An empty list allows every type.
func (f *FileUpload) IsAllowedMimeType(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, validType := range allowed {
		if f.MimeType == validType {
			return true
		}
	}
	return false
}

func (f *FileUpload) GetFileSizeInMB() float64 {
	return float64(f.FileSize) / (1024 * 1024)
}
