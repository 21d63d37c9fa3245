package progress

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UpgradeTopic is the topic upgrade jobs publish their progress on
const UpgradeTopic = "/docker/upgrade"

// MessageType identifies what a progress message carries
type MessageType string

const (
	MessageLog     MessageType = "log"
	MessagePercent MessageType = "percent"
	MessageStatus  MessageType = "status"
)

// Status is the lifecycle status of an upgrade run
type Status string

const (
	StatusNone     Status = ""
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Terminal reports whether the status ends a run
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// Message is a single progress event: {type, value}
type Message struct {
	Type  MessageType `json:"type"`
	Value any         `json:"value"`
}

// LogMessage creates a log line message
func LogMessage(line string) Message {
	return Message{Type: MessageLog, Value: line}
}

// PercentMessage creates a percent message
func PercentMessage(percent int) Message {
	return Message{Type: MessagePercent, Value: percent}
}

// StatusMessage creates a status message
func StatusMessage(status Status) Message {
	return Message{Type: MessageStatus, Value: string(status)}
}

// Text returns the value rendered as a string
func (m Message) Text() string {
	switch v := m.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case Status:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Percent returns the value as an integer percentage.
// JSON decoding yields float64, so fractional values are truncated.
func (m Message) Percent() int {
	switch v := m.Value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case float32:
		return int(v)
	case float64:
		if math.IsNaN(v) {
			return 0
		}
		return int(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

// Status returns the value as a Status
func (m Message) Status() Status {
	return Status(m.Text())
}
