package capture

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fwojciec/synapse"
)

var _ synapse.Recognizer = PlaceholderRecognizer{}

// PlaceholderRecognizer stands in for OCR. It performs no image analysis.
type PlaceholderRecognizer struct{}

// Recognize returns a fixed marker text.
func (PlaceholderRecognizer) Recognize(_ context.Context, filename string, _ []byte) (string, error) {
	return fmt.Sprintf("[OCR placeholder] No text recognized in %s.", filename), nil
}

// ImageService runs the image note pipeline. Recognizer defaults to
// PlaceholderRecognizer.
type ImageService struct {
	Files      synapse.FileStore
	Recognizer synapse.Recognizer
	Recorder   Recorder
}

// CaptureImage stores data in the file store and persists a NOTE item whose
// URL is the stored location. A file store failure persists nothing.
func (s *ImageService) CaptureImage(ctx context.Context, items synapse.ItemService, filename string, data []byte) (*synapse.Item, error) {
	start := time.Now()
	item, err := s.captureImage(ctx, items, filename, data)
	if s.Recorder != nil {
		outcome := OutcomePersisted
		if err != nil {
			outcome = OutcomeFailed
		}
		s.Recorder.ObserveCapture(KindImage, outcome, time.Since(start))
	}
	return item, err
}

func (s *ImageService) captureImage(ctx context.Context, items synapse.ItemService, filename string, data []byte) (*synapse.Item, error) {
	name := baseName(filename)
	if name == "" || name == "." || name == "/" {
		return nil, synapse.Errorf(synapse.EINVALID, "filename required")
	}

	location, err := s.Files.Save(ctx, name, data)
	if err != nil {
		return nil, asCode(synapse.EFILESTORE, err)
	}

	recognizer := s.Recognizer
	if recognizer == nil {
		recognizer = PlaceholderRecognizer{}
	}
	text, err := recognizer.Recognize(ctx, name, data)
	if err != nil {
		return nil, asCode(synapse.EINTERNAL, err)
	}

	keywords := Keywords(name)
	content := fmt.Sprintf("Image note %s. Keywords: %s.", name, keywords)
	if text = strings.TrimSpace(text); text != "" {
		content += " " + text
	}

	item := &synapse.Item{
		URL:     location,
		Title:   "Note: " + name,
		Content: content,
		Type:    synapse.ItemTypeNote,
	}
	if err := items.CreateItem(ctx, item); err != nil {
		return nil, asCode(synapse.ESTORE, err)
	}
	return item, nil
}

// Keywords derives search keywords from a filename: the extension is dropped
// and underscores and hyphens become spaces.
func Keywords(filename string) string {
	name := baseName(filename)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return synapse.CollapseSpace(name)
}

func baseName(filename string) string {
	filename = strings.TrimSpace(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "" {
		return ""
	}
	return path.Base(filename)
}
