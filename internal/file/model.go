package file

import (
	"time"

	"github.com/uptrace/bun"
)

// File is a stored upload. Data holds the full content; listings never
// select it.
type File struct {
	bun.BaseModel `bun:"table:uploaded_files,alias:uf"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	FileName     string    `bun:"file_name,notnull"`
	OriginalName string    `bun:"original_name,notnull"`
	FileType     string    `bun:"file_type,notnull"`
	MimeType     string    `bun:"mime_type,notnull"`
	FileSize     int64     `bun:"file_size,notnull"`
	Data         []byte    `bun:"file_data,type:bytea,notnull"`
	Hash         string    `bun:"file_hash,notnull"`
	UploadDate   time.Time `bun:"upload_date,nullzero,notnull,default:current_timestamp"`
	IsPrimary    bool      `bun:"is_primary,notnull"`
}

// Info is the metadata of a file as listed to its owner.
type Info struct {
	ID               int64     `bun:"id" json:"id"`
	FileName         string    `bun:"file_name" json:"file_name"`
	OriginalFilename string    `bun:"original_filename" json:"original_filename"`
	FileType         string    `bun:"file_type" json:"file_type"`
	FileSize         int64     `bun:"file_size" json:"file_size"`
	UploadedAt       time.Time `bun:"uploaded_at" json:"uploaded_at"`
	IsPrimary        bool      `bun:"is_primary" json:"is_primary"`
}

// Upload is a received file before it is stored.
type Upload struct {
	OriginalName string
	DeclaredType string
	FileType     string
	Data         []byte
}
