// Package cloudstore defines the cloud replication collaborator
// contract (spec.md §6) and a LocalMirror implementation that copies
// into a second local directory tree. Wiring a real Google Drive/S3
// client is out of scope (spec.md §1); no pack example provides one
// either, so LocalMirror is the only concrete Store this module ships.
package cloudstore

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joskode/wna/pkg/wnaerr"
)

// FileMetadata is what a Store reports back about a remote object.
type FileMetadata struct {
	ID           string
	Name         string
	ModifiedTime time.Time
}

// Store is the cloud replication capability set, spec.md §6.
type Store interface {
	// EnsureFolder returns the id of a folder named name under parent
	// (empty parentID means the store's root), creating it if absent.
	EnsureFolder(name, parentID string) (folderID string, err error)

	// Upload copies localPath into folderID under remoteName and
	// returns the resulting object's metadata.
	Upload(localPath, folderID, remoteName string) (FileMetadata, error)

	// Metadata looks up an existing object by name inside folderID.
	// A nil FileMetadata (zero ID) with a nil error means "not found".
	Metadata(folderID, nameInFolder string) (*FileMetadata, error)

	// IsRemoteOlder reports whether the local file is newer than
	// remoteModifiedAt, i.e. whether it should be re-uploaded.
	IsRemoteOlder(localPath string, remoteModifiedAt time.Time) (bool, error)
}

// LocalMirror implements Store by copying into a second directory tree
// on the same filesystem. It is the default Store for tests and for
// operators without a cloud account configured.
type LocalMirror struct {
	Root string
}

func NewLocalMirror(root string) *LocalMirror {
	return &LocalMirror{Root: root}
}

func (m *LocalMirror) EnsureFolder(name, parentID string) (string, error) {
	path := filepath.Join(m.Root, parentID, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", &wnaerr.FilesystemError{Op: "ensure cloud folder", Path: path, Err: err}
	}
	return filepath.Join(parentID, name), nil
}

func (m *LocalMirror) Upload(localPath, folderID, remoteName string) (FileMetadata, error) {
	dstDir := filepath.Join(m.Root, folderID)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return FileMetadata{}, &wnaerr.FilesystemError{Op: "create remote folder", Path: dstDir, Err: err}
	}
	dst := filepath.Join(dstDir, remoteName)

	src, err := os.Open(localPath)
	if err != nil {
		return FileMetadata{}, &wnaerr.FilesystemError{Op: "open local file for upload", Path: localPath, Err: err}
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return FileMetadata{}, &wnaerr.FilesystemError{Op: "create remote file", Path: dst, Err: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return FileMetadata{}, &wnaerr.FilesystemError{Op: "copy to remote", Path: dst, Err: err}
	}

	info, err := os.Stat(dst)
	if err != nil {
		return FileMetadata{}, &wnaerr.FilesystemError{Op: "stat uploaded file", Path: dst, Err: err}
	}

	return FileMetadata{
		ID:           filepath.Join(folderID, remoteName),
		Name:         remoteName,
		ModifiedTime: info.ModTime().UTC(),
	}, nil
}

func (m *LocalMirror) Metadata(folderID, nameInFolder string) (*FileMetadata, error) {
	path := filepath.Join(m.Root, folderID, nameInFolder)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &wnaerr.FilesystemError{Op: "stat remote file", Path: path, Err: err}
	}
	return &FileMetadata{
		ID:           filepath.Join(folderID, nameInFolder),
		Name:         nameInFolder,
		ModifiedTime: info.ModTime().UTC(),
	}, nil
}

func (m *LocalMirror) IsRemoteOlder(localPath string, remoteModifiedAt time.Time) (bool, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return false, &wnaerr.FilesystemError{Op: "stat local file", Path: localPath, Err: err}
	}
	return remoteModifiedAt.Before(info.ModTime()), nil
}
