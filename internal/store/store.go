// Package store persists a fetched resource's bytes to disk (or skips
// the write for a rejected resource with no rejected-folder configured)
// and records the corresponding Document row, per spec.md §4.C.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rohmanhakim/pdfcrawler/internal/frontier"
	"github.com/rohmanhakim/pdfcrawler/internal/telemetry"
	"github.com/rohmanhakim/pdfcrawler/pkg/failure"
	"github.com/rohmanhakim/pdfcrawler/pkg/fileutil"
	"github.com/rohmanhakim/pdfcrawler/pkg/hashutil"
)

// Store writes accepted/rejected resources under the configured
// download/reject folders and records one Document row per write.
type Store struct {
	db   *sql.DB
	sink telemetry.MetadataSink
}

func NewStore(db *sql.DB, sink telemetry.MetadataSink) *Store {
	return &Store{db: db, sink: sink}
}

// Write implements spec.md §4.C's store(accepted, resource, mime,
// acceptedDir, rejectedDir, filename, metadata, bytes) -> finalName.
func (s *Store) Write(
	accepted bool,
	resource frontier.Resource,
	mimeType string,
	acceptedDir string,
	rejectedDir string,
	filename string,
	metadata map[string]string,
	body []byte,
) (WriteResult, failure.ClassifiedError) {
	finalName := buildFinalName(resource.ID(), filename, mimeType)

	writtenPath := ""
	if accepted {
		path, err := writeTo(acceptedDir, finalName, mimeType, body)
		if err != nil {
			return WriteResult{}, err
		}
		writtenPath = path
	} else if rejectedDir != "" {
		path, err := writeTo(rejectedDir, finalName, mimeType, body)
		if err != nil {
			return WriteResult{}, err
		}
		writtenPath = path
	}

	documentID, err := s.recordDocument(resource, mimeType, finalName, metadata, body, accepted)
	if err != nil {
		return WriteResult{}, err
	}

	if s.sink != nil && writtenPath != "" {
		s.sink.RecordArtifact(telemetry.ArtifactDocument, writtenPath, []telemetry.Attribute{
			telemetry.NewAttr(telemetry.AttrURL, resource.URL()),
		})
	}

	return NewWriteResult(finalName, writtenPath, documentID), nil
}

func buildFinalName(resourceID int64, filename, mimeType string) string {
	sanitized := fileutil.SanitizeFilename(filename)
	if sanitized == "" {
		sanitized = "resource"
	}
	if fileutil.GetFileExtension(sanitized) == "" {
		if ext := canonicalExtension(mimeType); ext != "" {
			sanitized += ext
		}
	}
	return fmt.Sprintf("%d_%s", resourceID, sanitized)
}

// writeTo writes body under dir/finalName. Text MIME types and binary
// MIME types both go through os.WriteFile unmodified — Go performs no
// newline translation on write, so the "text mode" distinction from
// spec.md §4.C is purely a routing decision already made by the caller
// (isTextMIME exists for callers/tests that need to assert it), not a
// different write path.
func writeTo(dir, finalName, mimeType string, body []byte) (string, failure.ClassifiedError) {
	_ = isTextMIME(mimeType)

	if err := fileutil.EnsureDir(dir); err != nil {
		return "", &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCausePathError,
			Path:      dir,
		}
	}

	fullPath := filepath.Join(dir, finalName)
	if err := os.WriteFile(fullPath, body, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return "", &StorageError{
			Message:   err.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      fullPath,
		}
	}
	return fullPath, nil
}

func (s *Store) recordDocument(
	resource frontier.Resource,
	mimeType string,
	finalName string,
	metadata map[string]string,
	body []byte,
	accepted bool,
) (int64, failure.ClassifiedError) {
	contentHash, err := hashutil.HashBytes(body, hashutil.HashAlgoBLAKE3)
	if err != nil {
		return 0, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	enriched := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		enriched[k] = v
	}
	enriched["_content_hash"] = contentHash

	metaJSON, jsonErr := json.Marshal(enriched)
	if jsonErr != nil {
		return 0, &StorageError{Message: jsonErr.Error(), Retryable: false, Cause: ErrCausePersistFailure}
	}

	name := metadata["/Title"]
	if name == "" {
		name = finalName
	}
	author := metadata["/Author"]
	numPages := parseIntMeta(metadata["_num_pages"])
	relevancy := parseFloatMeta(metadata["_relevancy"])

	res, execErr := s.db.Exec(
		`INSERT INTO documents (name, author, type, filename, meta_data, relevancy, num_pages, accepted, timestamp, uuid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, author, mimeType, finalName, string(metaJSON), relevancy, numPages, accepted, time.Now(), uuid.NewString(),
	)
	if execErr != nil {
		return 0, &StorageError{Message: execErr.Error(), Retryable: false, Cause: ErrCausePersistFailure}
	}

	documentID, idErr := res.LastInsertId()
	if idErr != nil {
		return 0, &StorageError{Message: idErr.Error(), Retryable: false, Cause: ErrCausePersistFailure}
	}

	if _, execErr := s.db.Exec(`UPDATE resources SET document_id = ? WHERE id = ?`, documentID, resource.ID()); execErr != nil {
		return 0, &StorageError{Message: execErr.Error(), Retryable: false, Cause: ErrCausePersistFailure}
	}

	return documentID, nil
}

func parseIntMeta(v string) int {
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0
	}
	return n
}

func parseFloatMeta(v string) float64 {
	var f float64
	if _, err := fmt.Sscanf(v, "%f", &f); err != nil {
		return 0
	}
	return f
}
