package handlers

import (
	"codonledger/internal/blobstore"
	"codonledger/internal/services"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DefaultMaxUploadSize caps a single blob upload
const DefaultMaxUploadSize = 20 * 1024 * 1024 // 20MB

// FileHandler passes blobs through to the configured blob store
type FileHandler struct {
	store   blobstore.Store
	maxSize int64
}

// NewFileHandler creates a new file handler
func NewFileHandler(store blobstore.Store, maxSize int64) *FileHandler {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &FileHandler{store: store, maxSize: maxSize}
}

// Upload stores a multipart file under its sanitized name
// POST /api/files
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	who, err := identity(c)
	if err != nil {
		return writeError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Printf("❌ [UPLOAD] Failed to parse file: %v", err)
		return writeError(c, &services.ValidationError{Field: "file", Message: "no file provided or invalid file"})
	}

	if fileHeader.Size > h.maxSize {
		log.Printf("⚠️  [UPLOAD] File too large: %d bytes (max %d)", fileHeader.Size, h.maxSize)
		return writeError(c, &services.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file too large, maximum size is %d MB", h.maxSize/(1024*1024)),
		})
	}

	name := c.FormValue("name")
	if name == "" {
		name = fileHeader.Filename
	}
	clean, err := blobstore.SanitizeName(name)
	if err != nil {
		return writeError(c, &services.ValidationError{Field: "name", Message: err.Error()})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return writeError(c, fmt.Errorf("failed to open upload: %w", err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		return writeError(c, fmt.Errorf("failed to read upload: %w", err))
	}

	contentType := strings.TrimSpace(strings.Split(fileHeader.Header.Get("Content-Type"), ";")[0])
	obj, err := h.store.Put(requestContext(c, who), clean, data, contentType)
	if err != nil {
		return writeError(c, err)
	}

	log.Printf("✅ [UPLOAD] Stored %s (%d bytes, %s) for user %s", obj.Name, obj.Size, h.store.Backend(), who.UserID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"file":          obj,
		"correlationId": who.CorrelationID,
	})
}

// Download streams a stored blob back to the caller
// GET /api/files/:name
func (h *FileHandler) Download(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, err := blobstore.SanitizeName(name); err != nil {
		return writeError(c, &services.ValidationError{Field: "name", Message: err.Error()})
	}

	data, obj, err := h.store.Get(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return writeError(c, &services.NotFoundError{Resource: "file", ID: name})
		}
		return writeError(c, err)
	}

	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", obj.Name))
	return c.Send(data)
}
