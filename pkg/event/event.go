// Package event wraps analyzed commits in logstash-compatible documents and
// writes them as JSON lines or Elasticsearch bulk requests.
package event

import (
	"os"
	"time"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
)

// Version is the logstash @version of every event.
const Version = 1

const indexPrefix = "codealong-"

// Event is one indexed document: the flattened commit plus logstash metadata.
type Event struct {
	Timestamp time.Time `json:"@timestamp"`
	Version   int       `json:"@version"`
	Host      string    `json:"host,omitempty"`
	Type      string    `json:"type"`

	*analysis.AnalyzedCommit
}

// New wraps commit. The timestamp is the authored time.
func New(commit *analysis.AnalyzedCommit, host string) Event {
	return Event{
		Timestamp:      commit.Timestamp(),
		Version:        Version,
		Host:           host,
		Type:           commit.EventType(),
		AnalyzedCommit: commit,
	}
}

// ID is the document id.
func (e Event) ID() string {
	return e.EventID()
}

// Index is the monthly index the event belongs to.
func (e Event) Index() string {
	return IndexName(e.Timestamp)
}

// IndexName returns codealong-YYYY.MM for t in UTC.
func IndexName(t time.Time) string {
	return indexPrefix + t.UTC().Format("2006.01")
}

// Hostname returns the machine name, or "" when it cannot be determined.
func Hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}

	return host
}
