package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-chat-api/internal/errors"
	"github.com/yukikurage/team-chat-api/internal/storage"
)

// UploadHandler issues blob references for message attachments.
type UploadHandler struct {
	blobs storage.BlobStore
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(blobs storage.BlobStore) *UploadHandler {
	return &UploadHandler{
		blobs: blobs,
	}
}

// CreateUploadHandle returns a fresh blob reference and the URL it
// will be served from once uploaded.
func (h *UploadHandler) CreateUploadHandle(c *gin.Context) {
	ref, err := h.blobs.GenerateUploadHandle()
	if err != nil {
		apierrors.InternalError(c, "Failed to create upload handle")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"blob_ref": ref,
		"url":      h.blobs.ResolveURL(ref),
	})
}
