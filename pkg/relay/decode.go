package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/brewlink/relay/pkg/models"
	"github.com/vmihailenco/msgpack/v5"
)

// decodeBinaryFrame interprets a binary frame as one or more packed
// MessagePack messages. Devices may pack multiple messages into a
// single frame, so the streaming decoder is tried first and every
// message it yields is kept, in order; only if it yields nothing is a
// single-message decode attempted as a fallback.
func decodeBinaryFrame(data []byte) ([]models.Message, error) {
	msgs, multiErr := decodeMessagePackStream(data)
	if multiErr == nil && len(msgs) > 0 {
		return msgs, nil
	}

	var single models.Message
	if err := msgpack.Unmarshal(data, &single); err != nil {
		if multiErr != nil {
			return nil, fmt.Errorf("messagepack decode failed (multi: %v): %w", multiErr, err)
		}

		return nil, fmt.Errorf("messagepack decode failed: %w", err)
	}

	return []models.Message{single}, nil
}

// decodeMessagePackStream reads successive top-level MessagePack values
// from data until the reader is exhausted. An "extra bytes" condition
// from a single msgpack.Unmarshal call is expected here — it just means
// more than one message was packed into the frame — so this decoder
// loops rather than treating it as an error.
func decodeMessagePackStream(data []byte) ([]models.Message, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	var out []models.Message

	for {
		var msg models.Message

		err := dec.Decode(&msg)
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			if len(out) > 0 {
				// Partial success: keep what decoded cleanly and stop.
				return out, nil
			}

			return nil, err
		}

		out = append(out, msg)
	}
}

// decodeTextFrame interprets a text frame as a single UTF-8 JSON object
// (the legacy device protocol).
func decodeTextFrame(data []byte) (models.Message, error) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("json decode failed: %w", err)
	}

	return msg, nil
}
