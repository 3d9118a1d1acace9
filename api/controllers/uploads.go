package controllers

import (
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
)

// imageFromMultipart extracts the "image" part of a multipart form upload.
func imageFromMultipart(r *http.Request) (multipart.File, error) {
	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required")
	}
	return file, nil
}
