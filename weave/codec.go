package weave

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Record is the transport form of a Command. The field names match the
// logs exported by the browser tool.
type Record struct {
	Action    string `json:"action"`
	TimeStamp int64  `json:"timeStamp"`
}

// Serialize converts commands into transport records, oldest first.
func Serialize(cmds []Command) []Record {
	out := make([]Record, len(cmds))
	for i, c := range cmds {
		out[i] = Record{Action: c.Kind.String()}
		if !c.Timestamp.IsZero() {
			out[i].TimeStamp = c.Timestamp.UnixMilli()
		}
	}
	return out
}

// Deserialize rebuilds commands from records without executing them.
// Records with an unknown action are dropped with a warning.
func Deserialize(records []Record, logger *slog.Logger) []Command {
	if logger == nil {
		logger = slog.Default()
	}
	cmds := make([]Command, 0, len(records))
	for i, r := range records {
		k, ok := ParseKind(r.Action)
		if !ok {
			logger.Warn("dropping log record",
				slog.Int("index", i),
				slog.String("action", r.Action),
				slog.Any("error", ErrUnknownAction))
			continue
		}
		c := Command{Kind: k}
		if r.TimeStamp != 0 {
			c.Timestamp = time.UnixMilli(r.TimeStamp)
		}
		cmds = append(cmds, c)
	}
	return cmds
}

// MarshalLog encodes records as a JSON array.
func MarshalLog(records []Record) ([]byte, error) {
	return json.Marshal(records)
}

// UnmarshalLog decodes a JSON array of records. Entries that are not
// objects come back as zero records and are dropped by Deserialize.
func UnmarshalLog(data []byte) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode command log: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, msg := range raw {
		var r Record
		if err := json.Unmarshal(msg, &r); err != nil {
			records = append(records, Record{})
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// EncodeTransport produces the text-safe clipboard form of a log.
func EncodeTransport(records []Record) (string, error) {
	data, err := MarshalLog(records)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeTransport accepts either a raw JSON log or its base64 clipboard form.
func DecodeTransport(payload string) ([]Record, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "[") {
		return UnmarshalLog([]byte(payload))
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return UnmarshalLog(data)
}
