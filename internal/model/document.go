package model

import "time"

// Document is the metadata of an uploaded file. The payload lives in file storage at FilePath.
type Document struct {
	ID          string     `bson:"_id" json:"id"`
	Title       string     `bson:"title" json:"title"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	PropertyID  string     `bson:"property_id,omitempty" json:"property_id,omitempty"`
	FilePath    string     `bson:"file_path" json:"file_path"`
	FileName    string     `bson:"file_name" json:"file_name"`
	FileSize    int64      `bson:"file_size" json:"file_size"`
	FileType    string     `bson:"file_type" json:"file_type"`
	UploadedBy  string     `bson:"uploaded_by" json:"uploaded_by"`
	Processed   bool       `bson:"processed" json:"processed"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// DocumentUpdate carries only the metadata fields to change
type DocumentUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	PropertyID  *string `json:"property_id"`
}
