package api

import (
	"mime"          // Content type and disposition
	"net/http"      // HTTP status codes
	"path/filepath" // Stored extension

	"brokerage_crm/internal/documents"  // KYC intake
	"brokerage_crm/internal/domain"     // Error taxonomy
	"brokerage_crm/internal/middleware" // Actor resolution

	"github.com/gin-gonic/gin" // Gin web framework
)

// UploadDocumentHandler stores one KYC document from a multipart form
func UploadDocumentHandler(intake *documents.Intake) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file") // Uploaded file part
		if err != nil {
			respondError(c, domain.Invalid("file", "a file is required"))
			return
		}
		file, err := header.Open() // Spooled by the multipart reader
		if err != nil {
			respondError(c, domain.Invalid("file", "the file could not be read"))
			return
		}
		defer file.Close()
		res, err := intake.Store(c.Request.Context(), middleware.ActorFrom(c), documents.Upload{
			DocumentType: c.PostForm("document_type"), // e.g. passport
			Section:      c.PostForm("section"),       // GovernmentDocument or ProofOfAddress
			FileName:     header.Filename,             // Original name, for the extension
			Size:         header.Size,                 // Declared size
			Content:      file,                        // File body
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res) // Stored document and next page
	}
}

// ListDocumentsHandler returns the subject's documents
func ListDocumentsHandler(intake *documents.Intake) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := intake.List(c.Request.Context(), middleware.ActorFrom(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs})
	}
}

// DownloadDocumentHandler streams the content of one of the subject's documents
func DownloadDocumentHandler(intake *documents.Intake) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		rc, doc, err := intake.Open(c.Request.Context(), middleware.ActorFrom(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		defer rc.Close()
		contentType := mime.TypeByExtension(filepath.Ext(doc.StorageKey)) // Keys keep the upload's extension
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
			"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}),
		})
	}
}
