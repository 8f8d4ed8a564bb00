package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/apperr"
	"github.com/sahajkedia/student-profile-challenge/internal/auth"
	"github.com/sahajkedia/student-profile-challenge/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest accepted upload.
const MaxSize = 10 << 20

const (
	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	defaultFileType = "document"
)

var (
	ErrNoFile        = apperr.Validation("No file uploaded")
	ErrInvalidType   = apperr.Validation("Invalid file type. Only PDF, DOC, and DOCX files are allowed.")
	ErrTooLarge      = apperr.Validation("File too large. Maximum size is 10MB.")
	ErrDuplicate     = apperr.Conflict("This file has already been uploaded")
	ErrNotFound      = apperr.NotFound("File not found")
	ErrDeleteMissing = apperr.NotFound("File not found or access denied")
)

// sniffed lists, per declared type, the detected types its content may have.
// Detection of legacy and zipped Office documents can stop at the container.
var sniffed = map[string][]string{
	mimePDF:  {mimePDF},
	mimeDOC:  {mimeDOC, "application/x-ole-storage"},
	mimeDOCX: {mimeDOCX, "application/zip"},
}

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

// Upload stores a document for caller. The same content may be stored once
// per user.
func (s *Service) Upload(ctx context.Context, caller auth.Identity, u Upload) (*File, error) {
	if len(u.Data) == 0 {
		return nil, ErrNoFile
	}
	if len(u.Data) > MaxSize {
		return nil, ErrTooLarge
	}
	if err := checkType(u.DeclaredType, u.Data); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(u.Data)
	hash := hex.EncodeToString(sum[:])

	exists, err := s.repo.HashExists(ctx, caller.ID, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		s.metrics.RecordDuplicateUpload(ctx)
		return nil, ErrDuplicate
	}

	fileType := u.FileType
	if fileType == "" {
		fileType = defaultFileType
	}
	f := &File{
		UserID:       caller.ID,
		FileName:     fmt.Sprintf("%d_%s", s.now().UnixMilli(), u.OriginalName),
		OriginalName: u.OriginalName,
		FileType:     fileType,
		MimeType:     u.DeclaredType,
		FileSize:     int64(len(u.Data)),
		Data:         u.Data,
		Hash:         hash,
	}

	err = s.repo.Create(ctx, f)
	if errors.Is(err, errDuplicate) {
		s.metrics.RecordDuplicateUpload(ctx)
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFileUploaded(ctx, f.MimeType)
	return f, nil
}

func (s *Service) List(ctx context.Context, caller auth.Identity) ([]Info, error) {
	return s.repo.List(ctx, caller.ID)
}

// Download returns a file with its content. Staff may read any file;
// students only their own. A file the caller may not read is not found.
func (s *Service) Download(ctx context.Context, caller auth.Identity, id int64) (*File, error) {
	owner := caller.ID
	if caller.Role.IsStaff() {
		owner = anyOwner
	}

	f, err := s.repo.Get(ctx, id, owner)
	if errors.Is(err, errNotFound) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes a file. Admins may delete any file; everyone else only
// their own.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	owner := caller.ID
	if caller.Role == auth.RoleAdmin {
		owner = anyOwner
	}

	deleted, err := s.repo.Delete(ctx, id, owner)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrDeleteMissing
	}
	return nil
}

func checkType(declared string, data []byte) error {
	accepted, ok := sniffed[declared]
	if !ok {
		return ErrInvalidType
	}
	detected := mimetype.Detect(data)
	for _, t := range accepted {
		if detected.Is(t) {
			return nil
		}
	}
	return ErrInvalidType
}

// ContentType maps a file name to the type it is served with.
func ContentType(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return mimePDF
	case "doc":
		return mimeDOC
	case "docx":
		return mimeDOCX
	default:
		return "application/octet-stream"
	}
}
