package narrative

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Record is the audit row written for every extraction.
type Record struct {
	ID         string            `json:"id" gorm:"primaryKey;column:id"`
	DocumentID string            `json:"document_id,omitempty" gorm:"column:document_id;index"`
	Source     string            `json:"source" gorm:"column:source"`
	TextHash   string            `json:"text_hash" gorm:"column:text_hash;index"`
	TextLength int               `json:"text_length" gorm:"column:text_length"`
	Fields     datatypes.JSONMap `json:"fields" gorm:"column:fields"`
	Strategies datatypes.JSONMap `json:"strategies" gorm:"column:strategies"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	Cached     bool              `json:"cached" gorm:"column:cached"`
	LatencyMS  int64             `json:"latency_ms" gorm:"column:latency_ms"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at"`
}

func (Record) TableName() string {
	return "extractions"
}

// toJSONMap round-trips v through encoding/json so typed maps are stored
// with their wire representation.
func toJSONMap(v interface{}) (datatypes.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	out := datatypes.JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return out, nil
}
