// pkg/caption/caption.go
package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var (
	// ErrInvalidImage marks a payload that is not a decodable image.
	ErrInvalidImage = errors.New("invalid image payload")
	// ErrImageTooLarge marks a payload over the configured size limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// Captioner turns a product photo into a short search phrase by asking
// the Vision API what the main object is. The web detection best guess
// is usually the closest thing to how a shopper would type it; plain
// labels are the fallback.
type Captioner struct {
	client    *vision.ImageAnnotatorClient
	maxSizeMB float64
	logger    *zap.Logger
}

// NewCaptioner creates a new Captioner instance
func NewCaptioner(ctx context.Context, credentialsFile string, maxSizeMB float64) (*Captioner, error) {
	if maxSizeMB <= 0 {
		return nil, fmt.Errorf("image size limit must be positive, got %v", maxSizeMB)
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision client: %w", err)
	}

	return &Captioner{
		client:    client,
		maxSizeMB: maxSizeMB,
		logger:    zap.L().Named("caption"),
	}, nil
}

// Close releases the underlying connection.
func (c *Captioner) Close() error {
	return c.client.Close()
}

// CaptionFromBase64 decodes a base64 image and returns a short caption
// for it. lang is passed to the API as a hint; an empty caption means no
// recognizable product was found.
func (c *Captioner) CaptionFromBase64(ctx context.Context, base64Image, lang string) (string, error) {
	data, err := decodeImage(base64Image)
	if err != nil {
		return "", err
	}
	if err := checkSize(len(data), c.maxSizeMB); err != nil {
		return "", err
	}

	c.logger.Info("Annotating image",
		zap.Int("bytes", len(data)),
		zap.String("lang", lang))

	img, err := vision.NewImageFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ictx := &visionpb.ImageContext{}
	if lang != "" {
		ictx.LanguageHints = []string{lang}
	}

	web, err := c.client.DetectWeb(ctx, img, ictx)
	if err != nil {
		return "", fmt.Errorf("web detection failed: %w", err)
	}
	if caption := bestGuess(web); caption != "" {
		c.logger.Info("Generated caption from web detection", zap.String("caption", caption))
		return caption, nil
	}

	labels, err := c.client.DetectLabels(ctx, img, ictx, 5)
	if err != nil {
		return "", fmt.Errorf("label detection failed: %w", err)
	}
	caption := topLabel(labels)
	c.logger.Info("Generated caption from labels", zap.String("caption", caption))
	return caption, nil
}

func bestGuess(web *visionpb.WebDetection) string {
	if web == nil {
		return ""
	}
	for _, guess := range web.GetBestGuessLabels() {
		if label := strings.TrimSpace(guess.GetLabel()); label != "" {
			return label
		}
	}
	return ""
}

func topLabel(labels []*visionpb.EntityAnnotation) string {
	for _, label := range labels {
		if desc := strings.TrimSpace(label.GetDescription()); desc != "" {
			return desc
		}
	}
	return ""
}

// decodeImage decodes a base64 payload, tolerating a data-URI prefix.
func decodeImage(base64Image string) ([]byte, error) {
	base64Image = strings.TrimSpace(base64Image)
	if base64Image == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	if strings.HasPrefix(base64Image, "data:") {
		if i := strings.Index(base64Image, ","); i >= 0 {
			base64Image = base64Image[i+1:]
		}
	}

	data, err := base64.StdEncoding.DecodeString(base64Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return data, nil
}

func checkSize(sizeBytes int, maxSizeMB float64) error {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	if sizeMB > maxSizeMB {
		return fmt.Errorf("%w: %.2fMB over the %.2fMB limit", ErrImageTooLarge, sizeMB, maxSizeMB)
	}
	return nil
}
