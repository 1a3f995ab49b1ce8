package domain

import "time"

// TimestampLayout is the wire format for metadata timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Model tags recorded on metadata rows.
const (
	ModelDALLE           = "dalle"
	ModelStableDiffusion = "stable-diffusion"
)

// ImageMetadata is one row per generated or uploaded image file.
// Rows are never updated; the retention sweeper deletes them by Timestamp.
type ImageMetadata struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Filename    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_image_metadata_filename" json:"filename"`
	Timestamp   time.Time `gorm:"not null;index:idx_image_metadata_timestamp" json:"timestamp"`
	Model       string    `gorm:"type:varchar(50);not null" json:"model"`
	Prompt      string    `gorm:"type:text;not null" json:"prompt"`
	Width       int       `gorm:"not null" json:"width"`
	Height      int       `gorm:"not null" json:"height"`
	Quality     string    `gorm:"type:varchar(50)" json:"quality"`
	Style       string    `gorm:"type:varchar(50)" json:"style"`
	User        string    `gorm:"column:user;type:varchar(50)" json:"user"`
	IsGenerated bool      `gorm:"not null" json:"is_generated"`
}

// TableName returns the database table name for ImageMetadata.
func (ImageMetadata) TableName() string {
	return "image_metadata"
}

// MetadataView is the descriptive subset of a row returned to API clients.
type MetadataView struct {
	Filename    string `json:"filename"`
	Timestamp   string `json:"timestamp"`
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Quality     string `json:"quality"`
	Style       string `json:"style"`
	User        string `json:"user"`
	IsGenerated bool   `json:"is_generated"`
}

// View returns the client-facing fields of m.
func (m *ImageMetadata) View() MetadataView {
	return MetadataView{
		Filename:    m.Filename,
		Timestamp:   m.Timestamp.UTC().Format(TimestampLayout),
		Model:       m.Model,
		Prompt:      m.Prompt,
		Width:       m.Width,
		Height:      m.Height,
		Quality:     m.Quality,
		Style:       m.Style,
		User:        m.User,
		IsGenerated: m.IsGenerated,
	}
}

// CopyAs returns a new unsaved row with m's descriptive fields under a different filename.
func (m *ImageMetadata) CopyAs(filename string, ts time.Time, generated bool) *ImageMetadata {
	return &ImageMetadata{
		Filename:    filename,
		Timestamp:   ts,
		Model:       m.Model,
		Prompt:      m.Prompt,
		Width:       m.Width,
		Height:      m.Height,
		Quality:     m.Quality,
		Style:       m.Style,
		User:        m.User,
		IsGenerated: generated,
	}
}
