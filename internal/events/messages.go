package events

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	TypeDatasetLoaded  = "dataset.loaded"
	TypeDatasetDeleted = "dataset.deleted"
)

// DatasetEvent announces a change in the set of loaded datasets. It
// carries only the dataset's identity and shape, never its rows.
type DatasetEvent struct {
	Type      string    `json:"type"`
	DatasetID string    `json:"dataset_id"`
	Source    string    `json:"source"`
	Label     string    `json:"label,omitempty"`
	Rows      int       `json:"rows"`
	Years     []string  `json:"years,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDatasetLoaded(id, source, label string, rows int, years []string) *DatasetEvent {
	return &DatasetEvent{
		Type:      TypeDatasetLoaded,
		DatasetID: id,
		Source:    source,
		Label:     label,
		Rows:      rows,
		Years:     years,
		Timestamp: time.Now(),
	}
}

func NewDatasetDeleted(id string) *DatasetEvent {
	return &DatasetEvent{
		Type:      TypeDatasetDeleted,
		DatasetID: id,
		Timestamp: time.Now(),
	}
}

func (m *DatasetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetEventFromJSON(data []byte) (*DatasetEvent, error) {
	var msg DatasetEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
