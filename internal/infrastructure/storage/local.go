package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// hashChunkSize is the read size used while hashing files
const hashChunkSize = 8192

// LocalStorage manages the drop folders of the pipeline: files arrive in the
// inbox and end up in processed or quarantine. Reports go to the output dir.
type LocalStorage struct {
	inboxDir      string
	processedDir  string
	quarantineDir string
	outputDir     string
	logger        *slog.Logger
}

// LocalStorageConfig lists the managed directories
type LocalStorageConfig struct {
	InboxDir      string
	ProcessedDir  string
	QuarantineDir string
	OutputDir     string
}

// FileMetadata contains information about a stored file
type FileMetadata struct {
	Name        string
	StoredPath  string
	Size        int64
	Hash        string
	ContentType string
	CreatedAt   time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, dir := range []string{cfg.InboxDir, cfg.ProcessedDir, cfg.QuarantineDir, cfg.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &LocalStorage{
		inboxDir:      cfg.InboxDir,
		processedDir:  cfg.ProcessedDir,
		quarantineDir: cfg.QuarantineDir,
		outputDir:     cfg.OutputDir,
		logger:        logger,
	}, nil
}

// HashFile streams path through SHA-256 and returns its hex digest and size
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	buf := make([]byte, hashChunkSize)
	var size int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			size += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to hash file: %w", err)
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), size, nil
}

// Hash implements the hasher used by deduplication
func (s *LocalStorage) Hash(ctx context.Context, path string) (string, int64, error) {
	return HashFile(path)
}

// SaveUpload writes an uploaded file into the inbox and returns metadata
func (s *LocalStorage) SaveUpload(ctx context.Context, filename string, reader io.Reader) (*FileMetadata, error) {
	// Sanitize filename
	safeName := filepath.Base(filename)
	if safeName == "." || safeName == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file name %q", filename)
	}
	destPath := filepath.Join(s.inboxDir, safeName)

	// Create destination file
	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	// Calculate hash while copying
	hash := sha256.New()
	multiWriter := io.MultiWriter(destFile, hash)

	size, err := io.Copy(multiWriter, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	fileHash := hex.EncodeToString(hash.Sum(nil))

	metadata := &FileMetadata{
		Name:        safeName,
		StoredPath:  destPath,
		Size:        size,
		Hash:        fileHash,
		ContentType: getContentType(safeName),
		CreatedAt:   time.Now(),
	}

	s.logger.Info("file uploaded to inbox",
		slog.String("filename", safeName),
		slog.Int64("size", size),
		slog.String("hash", fileHash))

	return metadata, nil
}

// ListInbox returns the CSV files waiting in the inbox, sorted by name. The
// extension check is case-insensitive.
func (s *LocalStorage) ListInbox(ctx context.Context) ([]string, error) {
	return listCSV(s.inboxDir)
}

// ListProcessed returns the files already moved to processed
func (s *LocalStorage) ListProcessed(ctx context.Context) ([]string, error) {
	return listCSV(s.processedDir)
}

func listCSV(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// MoveToProcessed moves an ingested file out of the inbox
func (s *LocalStorage) MoveToProcessed(ctx context.Context, path string) (string, error) {
	return s.move(path, s.processedDir, "processed")
}

// MoveToQuarantine moves a file that could not be parsed at all
func (s *LocalStorage) MoveToQuarantine(ctx context.Context, path string) (string, error) {
	return s.move(path, s.quarantineDir, "quarantine")
}

func (s *LocalStorage) move(path, dir, label string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", label, err)
	}

	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to move file to %s: %w", label, err)
	}

	s.logger.Info("file moved",
		slog.String("from", path),
		slog.String("to", dest),
		slog.String("folder", label))

	return dest, nil
}

// RestoreProcessed moves every processed file back into the inbox and
// returns how many were moved
func (s *LocalStorage) RestoreProcessed(ctx context.Context) (int, error) {
	files, err := s.ListProcessed(ctx)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, f := range files {
		if _, err := s.move(f, s.inboxDir, "inbox"); err != nil {
			s.logger.Warn("failed to restore processed file",
				slog.String("path", f),
				slog.Any("error", err))
			continue
		}
		moved++
	}

	return moved, nil
}

// ClearReports removes generated workbooks from the output directory
func (s *LocalStorage) ClearReports(ctx context.Context) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.outputDir, "*.xlsx"))
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}

	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			s.logger.Warn("failed to remove report",
				slog.String("path", m),
				slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, nil
}

// OutputDir returns the directory reports are written to
func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

// InboxDir returns the inbox directory
func (s *LocalStorage) InboxDir() string {
	return s.inboxDir
}

// getContentType returns the content type based on file extension
func getContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
