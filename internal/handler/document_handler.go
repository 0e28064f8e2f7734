package handler

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

// ListDocuments handles retrieving documents, optionally of one property
func (h *Handler) ListDocuments(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	documents, err := h.documents(c).List(c.Request().Context(), c.QueryParam("property_id"), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, documents)
}

// UploadDocument handles a multipart upload with the payload in the "file" field
func (h *Handler) UploadDocument(c echo.Context) error {
	log := logger.FromContext(c)

	// caps the multipart envelope; the file itself is limited while it is stored
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.cfg.Upload.MaxSize+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &service.Error{Kind: service.ErrFileTooLarge, Msg: "File too large"}
		}
		log.Warn("Upload without file", zap.Error(err))
		return &service.Error{Kind: service.ErrValidation, Msg: "file is required"}
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	doc, err := h.documents(c).Upload(c.Request().Context(), middleware.CurrentUser(c), service.Upload{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		PropertyID:  c.FormValue("property_id"),
		FileName:    fh.Filename,
		Body:        src,
	})
	if err != nil {
		return err
	}
	prometheus.RecordUpload(doc.FileSize)

	log.Info("Document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("file_name", doc.FileName),
		zap.Int64("file_size", doc.FileSize))
	return c.JSON(http.StatusCreated, doc)
}

// GetDocument handles retrieving document metadata
func (h *Handler) GetDocument(c echo.Context) error {
	doc, err := h.documents(c).Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadDocument streams the stored file
func (h *Handler) DownloadDocument(c echo.Context) error {
	doc, body, err := h.documents(c).Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	defer body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(doc.FileName))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	return c.Stream(http.StatusOK, contentType, body)
}

// UpdateDocument handles a partial update of document metadata
func (h *Handler) UpdateDocument(c echo.Context) error {
	var req model.DocumentUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	doc, err := h.documents(c).Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes the document record and its stored file
func (h *Handler) DeleteDocument(c echo.Context) error {
	id := c.Param("id")
	if err := h.documents(c).Delete(c.Request().Context(), id); err != nil {
		return err
	}
	logger.FromContext(c).Info("Document deleted", zap.String("document_id", id))
	return c.NoContent(http.StatusNoContent)
}

// ProcessDocument marks a document as processed
func (h *Handler) ProcessDocument(c echo.Context) error {
	doc, err := h.documents(c).Process(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}
