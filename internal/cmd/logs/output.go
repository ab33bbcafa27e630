package logscmd

import (
	"encoding/base64"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rzbill/logstore/internal/codec"
)

// logView is the JSON shape of one printed log.
func logView(entryID string, l codec.Log) map[string]any {
	out := map[string]any{
		"entry_id":  entryID,
		"type":      l.Type,
		"timestamp": l.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if l.ID != uuid.Nil {
		out["id"] = l.ID.String()
	}
	if l.SessionID != uuid.Nil {
		out["session_id"] = l.SessionID.String()
	}
	if l.UserID != "" {
		out["user_id"] = l.UserID
	}
	if len(l.Properties) > 0 {
		out["properties"] = l.Properties
	}
	for k, v := range decodedData(l.Data) {
		out[k] = v
	}
	return out
}

// decodedData returns one of data_json, data_text, or data_b64.
func decodedData(payload []byte) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	if payload[0] == '{' || payload[0] == '[' {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			return map[string]any{"data_json": v}
		}
	}
	if utf8.Valid(payload) {
		return map[string]any{"data_text": string(payload)}
	}
	return map[string]any{"data_b64": base64.StdEncoding.EncodeToString(payload)}
}
