package narrative

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

type RequestWrapper struct {
	DocumentID string            `json:"document_id,omitempty"`
	Source     string            `json:"source"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (r RequestWrapper) ToModel() models.ExtractRequest {
	return models.ExtractRequest{
		DocumentID: strings.TrimSpace(r.DocumentID),
		Source:     strings.TrimSpace(r.Source),
		Text:       r.Text,
		Metadata:   r.Metadata,
	}
}

// requestFromEvent reads a document.text event payload.
func requestFromEvent(event models.Event) (models.ExtractRequest, error) {
	text, ok := event.Data["text"].(string)
	if !ok {
		return models.ExtractRequest{}, ValidationError{reason: fmt.Errorf("event %s: %w", event.ID, errEmptyText)}
	}
	req := models.ExtractRequest{
		Source:   event.Source,
		Text:     text,
		Metadata: event.Metadata,
	}
	if id, ok := event.Data["document_id"].(string); ok {
		req.DocumentID = strings.TrimSpace(id)
	}
	if src, ok := event.Data["source"].(string); ok && strings.TrimSpace(src) != "" {
		req.Source = strings.TrimSpace(src)
	}
	return req, nil
}
