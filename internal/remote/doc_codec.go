package remote

import (
	"encoding/json"
	"fmt"

	"github.com/TheMichaelB/notesync/internal/models"
)

// encodeNoteDoc serializes a note record for document storage. Keeping
// the record as one JSON document means the DynamoDB schema never needs
// to track note model changes.
func encodeNoteDoc(note *models.Note) (string, error) {
	data, err := json.Marshal(note)
	if err != nil {
		return "", fmt.Errorf("marshal note doc: %w", err)
	}
	return string(data), nil
}

func decodeNoteDoc(doc string) (*models.Note, error) {
	var note models.Note
	if err := json.Unmarshal([]byte(doc), &note); err != nil {
		return nil, fmt.Errorf("unmarshal note doc: %w", err)
	}
	return &note, nil
}
