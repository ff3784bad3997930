package moderation

import (
	"time"

	"github.com/google/uuid"

	"github.com/perspectron/perspectron/pkg/domain"
)

// Reason distinguishes how a message entered the workflow.
type Reason string

const (
	ReasonAutoFlagged Reason = "auto_flagged"
	ReasonReported    Reason = "reported"
)

// Action is the terminal moderator decision on a posted report.
type Action string

const (
	ActionNone    Action = ""
	ActionCleared Action = "cleared"
	ActionRemoved Action = "removed"
	ActionKicked  Action = "kicked"
	ActionBanned  Action = "banned"
)

// State of an escalation record. Posted records wait for exactly one
// moderator action; terminal records accept no further transitions.
type State string

const (
	StateDetected State = "detected"
	StatePosted   State = "posted"
	StateResolved State = "resolved"
)

// EscalationRecord tracks one flagged-or-reported message from detection
// through moderator resolution.
type EscalationRecord struct {
	ID uuid.UUID `json:"id"`

	// The message under moderation.
	TargetMessageID string `json:"target_message_id"`
	TargetChannelID string `json:"target_channel_id"`
	TargetAuthorID  string `json:"target_author_id"`
	TargetContent   string `json:"target_content"`

	// The report posted to the moderator channel, set on Detected -> Posted.
	ReportMessageID string `json:"report_message_id"`

	ReporterID string  `json:"reporter_id,omitempty"`
	Reason     Reason  `json:"reason"`
	Verdict    Verdict `json:"verdict"`

	State     State     `json:"state"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEscalationRecord(targetMessageID, targetChannelID, targetAuthorID, content string, verdict Verdict, reason Reason) *EscalationRecord {
	return &EscalationRecord{
		ID:              uuid.New(),
		TargetMessageID: targetMessageID,
		TargetChannelID: targetChannelID,
		TargetAuthorID:  targetAuthorID,
		TargetContent:   content,
		Reason:          reason,
		Verdict:         verdict,
		State:           StateDetected,
		CreatedAt:       time.Now(),
	}
}

// MarkPosted records the Detected -> Posted transition.
func (r *EscalationRecord) MarkPosted(reportMessageID string) {
	r.ReportMessageID = reportMessageID
	r.State = StatePosted
}

// Resolve applies the single terminal transition. The first writer wins;
// any later call reports ErrDuplicateResolution and leaves the record
// untouched.
func (r *EscalationRecord) Resolve(action Action) error {
	if r.State == StateResolved {
		return domain.ErrDuplicateResolution
	}
	if action == ActionNone {
		return domain.ErrUnknownCommand
	}
	r.Action = action
	r.State = StateResolved
	return nil
}

// Terminal reports whether the record accepts further transitions.
func (r *EscalationRecord) Terminal() bool {
	return r.State == StateResolved
}
