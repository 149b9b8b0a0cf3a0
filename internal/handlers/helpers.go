package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pragati08ps/design-approval-system/internal/services"
	"github.com/pragati08ps/design-approval-system/pkg/apperrors"
)

// parseID reads a numeric path parameter. Malformed ids cannot name an
// existing entity, so they are reported as not found.
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s %q: %w", name, c.Param(name), apperrors.ErrNotFound)
	}
	return uint(id), nil
}

// readUpload loads the multipart file in field, refusing files larger than
// maxBytes.
func readUpload(c *gin.Context, field string, maxBytes int64) (services.FileInput, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)
	}
	header, err := c.FormFile(field)
	if err != nil {
		return services.FileInput{}, fmt.Errorf("%w: %s file is required", apperrors.ErrValidation, field)
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return services.FileInput{}, fmt.Errorf("%w: file exceeds %d MB", apperrors.ErrValidation, maxBytes>>20)
	}

	f, err := header.Open()
	if err != nil {
		return services.FileInput{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.FileInput{}, err
	}
	return services.FileInput{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
