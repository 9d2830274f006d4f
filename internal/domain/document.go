package domain

import "strings"

// DocumentType classifies an uploaded KYC document.
type DocumentType int

const (
	DocumentPassport DocumentType = iota + 1
	DocumentGovernmentID
	DocumentLicense
	DocumentBankStatement
	DocumentUtilityBill
)

// Document sections accepted by the upload form.
const (
	SectionGovernmentDocument = "governmentDocument"
	SectionProofOfAddress     = "proofOfAddDocument"
)

var documentTypeNames = map[string]DocumentType{
	"passport":      DocumentPassport,
	"idcard":        DocumentGovernmentID,
	"license":       DocumentLicense,
	"bankstatement": DocumentBankStatement,
	"utilitybill":   DocumentUtilityBill,
}

var sectionDocumentTypes = map[string][]DocumentType{
	SectionGovernmentDocument: {DocumentLicense, DocumentPassport, DocumentGovernmentID},
	SectionProofOfAddress:     {DocumentBankStatement, DocumentUtilityBill},
}

// ParseDocumentType maps the form value (case-insensitive) to a DocumentType.
func ParseDocumentType(s string) (DocumentType, bool) {
	t, ok := documentTypeNames[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// AllowedIn reports whether the document type may be uploaded under section.
// Unknown sections allow nothing.
func (t DocumentType) AllowedIn(section string) bool {
	for _, allowed := range sectionDocumentTypes[section] {
		if allowed == t {
			return true
		}
	}
	return false
}

func (t DocumentType) String() string {
	for name, v := range documentTypeNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}

// UserDocument Model. Rows are immutable once created.
type UserDocument struct {
	ID           uint         `gorm:"primaryKey" json:"id"`                 // Primary key
	UserID       uint         `gorm:"index;not null" json:"user_id"`        // Owning user
	DocumentType DocumentType `gorm:"not null" json:"document_type"`        // Document type enum value
	Section      string       `gorm:"size:32" json:"section"`               // Upload section
	StorageKey   string       `gorm:"size:64;uniqueIndex" json:"storage_key"` // Generated blob key
	FileName     string       `gorm:"size:255" json:"file_name"`            // Original file name
}
