package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/server/tinify"
)

type compressRequest struct {
	ImageData string `json:"imageData"`
	FileName  string `json:"fileName"`
}

// CompressResponse reports the compressed image as base64.
type CompressResponse struct {
	Success        bool    `json:"success"`
	ImageData      string  `json:"imageData"`
	ContentType    string  `json:"contentType"`
	OriginalSize   int     `json:"originalSize"`
	CompressedSize int     `json:"compressedSize"`
	Saved          int     `json:"saved"`
	SavedPercent   float64 `json:"savedPercent"`
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req compressRequest
	if err := decodeBody(r, &req); err != nil || req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "Image data is required")
		return
	}

	data, err := tinify.DecodeImageData(req.ImageData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image data is not valid base64")
		return
	}

	res, err := s.deps.Compressor.Compress(ctx, data)
	if err != nil {
		var tErr *tinify.Error
		switch {
		case errors.Is(err, common.ErrNotConfigured):
			writeError(w, http.StatusInternalServerError, "TinyJPG API KEY not configured")
		case errors.Is(err, common.ErrBadRequest):
			writeError(w, http.StatusBadRequest, "Image data is required")
		case errors.As(err, &tErr):
			writeError(w, tErr.Status, tErr.Message)
		default:
			s.logger.Error(ctx, "compress failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error", Message: err.Error()})
		}
		return
	}

	s.logger.Info(ctx, "image compressed", "file", req.FileName, "original", res.OriginalSize, "compressed", res.CompressedSize)

	writeJSON(w, http.StatusOK, CompressResponse{
		Success:        true,
		ImageData:      base64.StdEncoding.EncodeToString(res.Data),
		ContentType:    tinify.DetectContentType(req.FileName, req.ImageData),
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Saved:          res.Saved,
		SavedPercent:   res.SavedPercent,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Health.Check(r.Context()))
}
