package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/klauspost/compress/zlib"

	"github.com/Goraved/aqareport/internal/record"
)

const compressionLevel = 6

// TimelineEntry is the reduced record drawn on the timeline.
type TimelineEntry struct {
	Timestamp float64          `json:"timestamp"`
	Duration  float64          `json:"duration"`
	Outcome   record.Outcome   `json:"outcome"`
	NodeID    string           `json:"nodeid"`
	WorkerID  string           `json:"worker_id"`
	Metadata  TimelineMetadata `json:"metadata"`
}

// TimelineMetadata carries the human title of a timeline entry.
type TimelineMetadata struct {
	CaseTitle string `json:"case_title"`
}

// Timeline projects results onto timeline entries.
func Timeline(results []*record.Result) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(results))
	for _, r := range results {
		worker := r.WorkerID
		if worker == "" {
			worker = record.DefaultWorkerID
		}
		title, _ := r.Metadata["case_title"].(string)
		out = append(out, TimelineEntry{
			Timestamp: r.Timestamp,
			Duration:  r.Duration,
			Outcome:   r.Outcome,
			NodeID:    r.NodeID,
			WorkerID:  worker,
			Metadata:  TimelineMetadata{CaseTitle: title},
		})
	}
	return out
}

// Compress encodes v as compact JSON, deflates it with zlib and returns
// the standard base64 encoding.
func Compress(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(data); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decompress reverses Compress into v.
func Decompress(s string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer zr.Close()
	return json.NewDecoder(zr).Decode(v)
}
