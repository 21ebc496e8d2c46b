package schemas

import (
	"path"
	"strings"
)

// StorageLocal is the default storage backend identifier
const StorageLocal = "local"

// FileItemType distinguishes files from directories
type FileItemType string

const (
	FileItemTypeFile FileItemType = "file"
	FileItemTypeDir  FileItemType = "dir"
)

// FileItem is a handle to a file within a storage backend.
// It is stored verbatim as a JSON snapshot alongside each transfer history row.
type FileItem struct {
	Storage    string       `json:"storage"`
	Type       FileItemType `json:"type"`
	Path       string       `json:"path"`
	Name       string       `json:"name"`
	Basename   string       `json:"basename,omitempty"`
	Extension  string       `json:"extension,omitempty"`
	Size       *int64       `json:"size,omitempty"`
	Modifytime *int64       `json:"modify_time,omitempty"`
}

// NewFileItem builds a file item for a path, deriving the name fields from it.
// An empty storage falls back to local storage. A trailing slash marks a directory.
func NewFileItem(storage, filePath string) *FileItem {
	if storage == "" {
		storage = StorageLocal
	}
	if len(filePath) > 1 && strings.HasSuffix(filePath, "/") {
		return &FileItem{
			Storage: storage,
			Type:    FileItemTypeDir,
			Path:    filePath,
			Name:    path.Base(filePath),
		}
	}
	name := path.Base(filePath)
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return &FileItem{
		Storage:   storage,
		Type:      FileItemTypeFile,
		Path:      filePath,
		Name:      name,
		Basename:  strings.TrimSuffix(name, path.Ext(name)),
		Extension: ext,
	}
}

// StorageOrDefault returns the item's storage, or local storage when unset
func (f *FileItem) StorageOrDefault() string {
	if f == nil || f.Storage == "" {
		return StorageLocal
	}
	return f.Storage
}
