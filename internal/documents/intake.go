// Package documents accepts KYC uploads for clients that finished the
// registration wizard.
package documents

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"brokerage_crm/internal/domain"
	"brokerage_crm/internal/metrics"
	"brokerage_crm/internal/stepgate"
	"brokerage_crm/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultMaxBytes caps a single upload when no limit is configured.
const DefaultMaxBytes = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// Upload is one submitted file with its form fields.
type Upload struct {
	DocumentType string
	Section      string
	FileName     string
	Size         int64
	Content      io.Reader
}

// Result is the stored document and, once both KYC sections hold a
// document, where the client goes next.
type Result struct {
	Document *domain.UserDocument `json:"document"`
	Redirect string               `json:"redirect,omitempty"`
}

// Intake validates and stores KYC documents.
type Intake struct {
	db       *gorm.DB
	blobs    storage.BlobStore
	metrics  *metrics.Metrics
	maxBytes int64
}

// NewIntake creates an Intake. A maxBytes of zero selects DefaultMaxBytes.
func NewIntake(db *gorm.DB, blobs storage.BlobStore, m *metrics.Metrics, maxBytes int64) *Intake {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Intake{db: db, blobs: blobs, metrics: m, maxBytes: maxBytes}
}

// validate checks the form before the subject is resolved and returns the
// document type and normalized extension.
func (s *Intake) validate(in Upload) (domain.DocumentType, string, error) {
	if strings.TrimSpace(in.DocumentType) == "" {
		return 0, "", domain.Invalid("document_type", "is required")
	}
	docType, ok := domain.ParseDocumentType(in.DocumentType)
	if !ok {
		return 0, "", domain.Invalid("document_type", "is not a supported document type")
	}
	if in.Content == nil || in.Size == 0 || strings.TrimSpace(in.FileName) == "" {
		return 0, "", domain.Invalid("file", "is required")
	}
	if in.Size > s.maxBytes {
		return 0, "", domain.Invalid("file", "is too large")
	}
	ext := strings.ToLower(filepath.Ext(in.FileName)) // ".PDF" is accepted as ".pdf"
	if !allowedExtensions[ext] {
		return 0, "", domain.Invalid("file", "must be a .jpg, .jpeg, .png or .pdf file")
	}
	if !docType.AllowedIn(in.Section) {
		return 0, "", domain.Invalid("document_type", docType.String()+" is not accepted in section "+in.Section)
	}
	return docType, ext, nil
}

// Store saves the file and records it against the subject. The blob is
// written inside the same transaction as the row; if the insert fails the
// row is rolled back and the blob deleted. A blob that cannot be deleted is
// logged as orphaned.
func (s *Intake) Store(ctx context.Context, actor domain.Actor, in Upload) (*Result, error) {
	docType, ext, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	profile, err := stepgate.Guard(ctx, s.db, actor, domain.StepDeclaration)
	if err != nil {
		return nil, err
	}

	doc := domain.UserDocument{
		UserID:       profile.UserID,
		DocumentType: docType,
		Section:      in.Section,
		StorageKey:   uuid.NewString() + ext,     // Never derived from the client's name
		FileName:     filepath.Base(in.FileName), // Display only
	}
	written := false // Set once the blob exists
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.blobs.Put(ctx, doc.StorageKey, in.Content, in.Size); err != nil {
			return err
		}
		written = true
		return tx.Create(&doc).Error
	})
	if err != nil {
		fields := logrus.Fields{
			"user_id":       profile.UserID,
			"section":       in.Section,
			"document_type": docType.String(),
			"error":         err.Error(),
		}
		if written {
			if derr := s.blobs.Delete(context.WithoutCancel(ctx), doc.StorageKey); derr != nil {
				fields["orphaned_key"] = doc.StorageKey
				fields["cleanup_error"] = derr.Error()
			}
		}
		logrus.WithFields(fields).Error("Document upload failed")
		return nil, &domain.PersistenceError{Op: "store document", Err: err}
	}

	s.metrics.DocumentStored(docType.String())
	logrus.WithFields(logrus.Fields{
		"user_id":     profile.UserID,
		"document_id": doc.ID,
		"type":        docType.String(),
		"actor_id":    actor.UserID,
	}).Info("Document stored")

	result := &Result{Document: &doc} // No redirect until both sections are covered
	complete, err := s.hasBothSections(ctx, profile.UserID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": profile.UserID, "error": err.Error()}).Warn("Failed to check KYC completeness")
	} else if complete {
		result.Redirect = stepgate.PageDashboard
	}
	return result, nil
}

// List returns the subject's documents, newest first.
func (s *Intake) List(ctx context.Context, actor domain.Actor) ([]domain.UserDocument, error) {
	profile, err := stepgate.Guard(ctx, s.db, actor, domain.StepDeclaration)
	if err != nil {
		return nil, err
	}
	docs := []domain.UserDocument{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", profile.UserID).Order("id DESC").Find(&docs).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list documents", Err: err}
	}
	return docs, nil
}

// Open streams the content of one of the subject's documents. A document
// owned by anyone else is reported as not found. The caller closes the reader.
func (s *Intake) Open(ctx context.Context, actor domain.Actor, id uint) (io.ReadCloser, *domain.UserDocument, error) {
	profile, err := stepgate.Guard(ctx, s.db, actor, domain.StepDeclaration)
	if err != nil {
		return nil, nil, err
	}
	var doc domain.UserDocument
	err = s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, profile.UserID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, &domain.NotFoundError{Resource: "document"}
	}
	if err != nil {
		return nil, nil, &domain.PersistenceError{Op: "load document", Err: err}
	}
	rc, err := s.blobs.Open(ctx, doc.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"document_id": doc.ID,
			"storage_key": doc.StorageKey,
		}).Error("Document row has no stored content")
		return nil, nil, &domain.NotFoundError{Resource: "document", Message: "document content is missing"}
	}
	if err != nil {
		return nil, nil, &domain.PersistenceError{Op: "open document", Err: err}
	}
	return rc, &doc, nil
}

func (s *Intake) hasBothSections(ctx context.Context, userID uint) (bool, error) {
	var sections []string
	err := s.db.WithContext(ctx).Model(&domain.UserDocument{}).
		Where("user_id = ?", userID).
		Distinct().Pluck("section", &sections).Error
	if err != nil {
		return false, err
	}
	have := map[string]bool{} // Sections holding at least one document
	for _, sec := range sections {
		have[sec] = true
	}
	return have[domain.SectionGovernmentDocument] && have[domain.SectionProofOfAddress], nil
}
