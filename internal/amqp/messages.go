package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RecordsImportedMessage announces that a new record batch replaced the
// stored one. Consumers drop cached aggregates on receipt; the batch itself
// is read back from storage.
type RecordsImportedMessage struct {
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordsImportedMessage(source string, records int) *RecordsImportedMessage {
	return &RecordsImportedMessage{
		Source:    source,
		Records:   records,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordsImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordsImportedMessageFromJSON decodes and checks a message body.
func RecordsImportedMessageFromJSON(data []byte) (*RecordsImportedMessage, error) {
	var msg RecordsImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Source == "" {
		return nil, errors.New("records imported message: missing source")
	}
	if msg.Records < 0 {
		return nil, errors.New("records imported message: negative record count")
	}
	return &msg, nil
}
