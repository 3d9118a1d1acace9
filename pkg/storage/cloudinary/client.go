package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/logger"
)

// UploadResult identifies a stored image.
type UploadResult struct {
	PublicID string
	URL      string
}

// ImageHost stores and removes images. Services depend on this interface so
// tests can swap in a fake.
type ImageHost interface {
	Upload(ctx context.Context, folder string, file io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// Client wraps the Cloudinary SDK.
type Client struct {
	cld *cloudinary.Cloudinary
}

var errURLRequired = errors.New("cloudinary url is required")

// New builds a Cloudinary client from the CLOUDINARY_URL-style DSN.
func New(ctx context.Context, cfg config.CloudinaryConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errURLRequired
	}

	cld, err := cloudinary.NewFromURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true

	if logg != nil {
		logg.Info(ctx, "cloudinary client initialized")
	}

	return &Client{cld: cld}, nil
}

// Upload stores the file in the given folder and returns its public id and URL.
func (c *Client) Upload(ctx context.Context, folder string, file io.Reader) (*UploadResult, error) {
	if c == nil || c.cld == nil {
		return nil, errors.New("cloudinary client not initialized")
	}

	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	return &UploadResult{
		PublicID: resp.PublicID,
		URL:      resp.SecureURL,
	}, nil
}

// Delete removes a previously uploaded image by its public id.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	if c == nil || c.cld == nil {
		return errors.New("cloudinary client not initialized")
	}
	if publicID == "" {
		return nil
	}

	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
