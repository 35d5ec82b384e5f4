package entities

import (
	"strings"
	"time"
)

type DownloadStatus string

const (
	DownloadStatusPending     DownloadStatus = "pending"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusReady       DownloadStatus = "ready"
)

// Valid reports whether s is one of the known download states.
func (s DownloadStatus) Valid() bool {
	switch s {
	case DownloadStatusPending, DownloadStatusDownloading, DownloadStatusReady:
		return true
	}
	return false
}

const (
	// DefaultAuthor is used when the remote listing carries no author.
	DefaultAuthor = "Unknown author"
	// DefaultCFI points at the cover of a book that has never been opened.
	DefaultCFI = "epubcfi(/6/2[cover]!/4/1:0)"
	// BlobLocatorPrefix prefixes LocalPath for content held in the blob cache.
	BlobLocatorPrefix = "blob://"
)

// Book is the local record of one remote EPUB file.
type Book struct {
	FileID         string         `gorm:"primaryKey;size:255" json:"fileId"`
	Title          string         `gorm:"index;size:512" json:"title"`
	Author         string         `gorm:"size:256" json:"author"`
	LocalPath      string         `gorm:"size:512" json:"localPath,omitempty"`
	LastCFI        string         `gorm:"column:last_cfi;type:text" json:"lastCfi"`
	Timestamp      int64          `gorm:"not null;default:0" json:"timestamp"`
	IsDirty        bool           `gorm:"index;not null;default:false" json:"isDirty"`
	DownloadStatus DownloadStatus `gorm:"size:20;not null;default:pending" json:"downloadStatus"`
	CreatedAt      time.Time      `json:"-"`
	UpdatedAt      time.Time      `json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// IsReady reports whether the book content is in the blob cache.
func (b *Book) IsReady() bool {
	return b.DownloadStatus == DownloadStatusReady
}

// BlobLocator returns the LocalPath value for a book cached under fileID.
func BlobLocator(fileID string) string {
	return BlobLocatorPrefix + fileID
}

// BlobID extracts the cache key from a blob locator.
func BlobID(localPath string) (string, bool) {
	if !strings.HasPrefix(localPath, BlobLocatorPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(localPath, BlobLocatorPrefix)
	return id, id != ""
}

// RemoteFile is one EPUB as reported by a remote listing.
type RemoteFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size"`
	Author       string    `json:"author,omitempty"`
}

// ListingItem is what the library store needs to upsert a remote file.
type ListingItem struct {
	FileID    string
	Title     string
	Author    string
	Timestamp int64

	// TimestampIsFallback marks a Timestamp not taken from the listing. It
	// only seeds new records; existing ones keep their timestamp.
	TimestampIsFallback bool
}
