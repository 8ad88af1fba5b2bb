package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"conference-abstracts-api/config"

	"github.com/google/uuid"
)

// StoredFile is the storage reference returned for saved bytes.
type StoredFile struct {
	Path string
	Size int64
	Hash string
}

// FileStorage stores uploaded bytes.
type FileStorage interface {
	Save(ctx context.Context, ownerID int, originalName string, content io.Reader) (StoredFile, error)
	Remove(path string) error
}

// LocalFileStorage writes files below root/abstracts/<owner>/.
type LocalFileStorage struct {
	root string
}

func NewLocalFileStorage(root string) *LocalFileStorage {
	if strings.TrimSpace(root) == "" {
		root = config.UploadPath()
	}
	return &LocalFileStorage{root: root}
}

func (s *LocalFileStorage) Save(ctx context.Context, ownerID int, originalName string, content io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	dir := filepath.Join(s.root, "abstracts", strconv.Itoa(ownerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	path := filepath.Join(dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file: %w", err)
	}

	hash := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(dst, hash), content)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return StoredFile{}, fmt.Errorf("failed to write file: %w", copyErr)
		}
		return StoredFile{}, fmt.Errorf("failed to close file: %w", closeErr)
	}

	return StoredFile{
		Path: path,
		Size: size,
		Hash: fmt.Sprintf("%x", hash.Sum(nil)),
	}, nil
}

func (s *LocalFileStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
