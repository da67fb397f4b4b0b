// Package session holds the transcript of one conversation with a remote
// agent: an append-only sequence of user and assistant turns plus the
// metadata needed to replay or audit the exchange.
package session

import (
	"encoding/json"
	"os"
	"time"

	"github.com/anychat/anychat/errors"
)

// Roles recorded in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is the ordered transcript of one conversation. Exactly one owner
// appends to it; it is not safe for concurrent use.
type Log struct {
	AgentURL  string    `json:"agent_url"`
	AgentType string    `json:"agent_type"`
	StartedAt time.Time `json:"started_at"`
	Turns     []Message `json:"turns"`
}

// New starts an empty transcript for the given agent.
func New(agentURL, agentType string) *Log {
	return &Log{
		AgentURL:  agentURL,
		AgentType: agentType,
		StartedAt: time.Now().UTC(),
		Turns:     []Message{},
	}
}

// Append records a turn stamped with the current time and returns it.
func (l *Log) Append(role, content string) Message {
	msg := Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
	l.Turns = append(l.Turns, msg)
	return msg
}

// Clear drops all recorded turns while keeping the agent metadata, so a
// conversation can restart on the same connection.
func (l *Log) Clear() {
	l.Turns = []Message{}
}

// Export serializes the transcript as indented JSON.
func (l *Log) Export() (string, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize transcript")
	}
	return string(data), nil
}

// Save writes the exported transcript to path.
func (l *Log) Save(path string) error {
	out, err := l.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return errors.Wrapf(err, "could not write transcript to %s", path)
	}
	return nil
}

// Parse reconstructs a transcript from exported JSON.
func Parse(data []byte) (*Log, error) {
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(err, "could not parse transcript")
	}
	return &l, nil
}

// Load reads a previously exported transcript back from disk.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read transcript file %s", path)
	}
	return Parse(data)
}
