package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/correction-api/internal/dto"
	"github.com/noah-isme/correction-api/internal/models"
	appErrors "github.com/noah-isme/correction-api/pkg/errors"
)

const (
	multipartFilesField = "files"
	maxUploadFileBytes  = 10 << 20
	maxMultipartMemory  = 32 << 20
)

// batchFilesFromRequest reads the files of a batch from a multipart form or a JSON body.
// Uploaded bytes are decoded as UTF-8; invalid sequences become U+FFFD.
func batchFilesFromRequest(c *gin.Context) ([]models.BatchFile, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return multipartBatchFiles(c)
	}
	var req dto.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload")
	}
	return req.Files, nil
}

func multipartBatchFiles(c *gin.Context) ([]models.BatchFile, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form")
	}
	headers := c.Request.MultipartForm.File[multipartFilesField]
	files := make([]models.BatchFile, 0, len(headers))
	for _, header := range headers {
		content, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		files = append(files, models.BatchFile{Name: filepath.Base(header.Filename), Content: content})
	}
	return files, nil
}

func readUpload(header *multipart.FileHeader) (string, error) {
	if header.Size > maxUploadFileBytes {
		return "", appErrors.Clone(appErrors.ErrSizeLimitExceeded, fmt.Sprintf("file %q exceeds the %d byte upload limit", header.Filename, maxUploadFileBytes))
	}
	f, err := header.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxUploadFileBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file")
	}
	if len(raw) > maxUploadFileBytes {
		return "", appErrors.Clone(appErrors.ErrSizeLimitExceeded, fmt.Sprintf("file %q exceeds the %d byte upload limit", header.Filename, maxUploadFileBytes))
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}
