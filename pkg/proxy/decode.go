package proxy

import (
	"encoding/json"
	"fmt"

	"github.com/brewlink/relay/pkg/models"
)

// decodeClientFrame parses a client->proxy WebSocket text frame as a
// tagged message map. Clients only ever send JSON.
func decodeClientFrame(data []byte) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("json decode failed: %w", err)
	}

	return msg, nil
}
