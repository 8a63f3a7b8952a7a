package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client wraps Cloudinary uploads for the two image kinds the platform
// stores: visa documents and profile avatars.
type Client interface {
	UploadDocument(ctx context.Context, file io.Reader, publicID string) (url string, err error)
	UploadAvatar(ctx context.Context, file io.Reader, publicID string) (url, thumbnailURL string, err error)
}

const (
	documentFolder = "studentconnect/visa-documents"
	avatarFolder   = "studentconnect/avatars"

	avatarEager = "q_auto,f_auto,w_400,c_fill"
	ThumbWidth  = 100
)

var eagerAsyncFalse = false

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for
// optimized delivery of an existing public ID.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = 400
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadDocument uploads a visa document unmodified. Documents are reviewed
// by admins, so no lossy eager transformation is applied.
func (c *clientImpl) UploadDocument(ctx context.Context, file io.Reader, publicID string) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:   documentFolder,
		PublicID: publicID,
	})
	if err != nil {
		return "", err
	}
	return result.SecureURL, nil
}

// UploadAvatar uploads a profile image with eager optimization.
func (c *clientImpl) UploadAvatar(ctx context.Context, file io.Reader, publicID string) (url, thumbnailURL string, err error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     avatarFolder,
		PublicID:   publicID,
		Eager:      avatarEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", "", err
	}
	url = result.SecureURL
	if len(result.Eager) > 0 {
		thumbnailURL = result.Eager[0].SecureURL
	}
	if thumbnailURL == "" {
		thumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	}
	return url, thumbnailURL, nil
}

// NewClientFromParams builds a Client from Cloudinary credentials.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cloudName: cloudName, uploader: up}, nil
}
