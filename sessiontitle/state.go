package sessiontitle

import (
	"github.com/xiaoyuanzhu-com/session-title/title"
)

// Source records where the current title came from
type Source string

const (
	SourceNone          Source = "none"
	SourceProvided      Source = "provided"
	SourceRemote        Source = "remote"
	SourceAutoGenerated Source = "auto_generated"
	SourceManual        Source = "manual"
)

// State is a snapshot of the title of the bound session
type State struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	Source    Source `json:"source"`

	// Stabilized titles are no longer overwritten by passive sync.
	// Only a manual write or a rebind changes them.
	Stabilized bool `json:"stabilized"`

	// ManuallyEdited mirrors the manual-edit ledger
	ManuallyEdited bool `json:"manuallyEdited"`

	// Updating is set while any title write is outstanding.
	// AutoGenerating additionally marks the write as auto-generated.
	Updating       bool   `json:"updating"`
	AutoGenerating bool   `json:"autoGenerating"`
	Reconciling    bool   `json:"reconciling"`
	Error          string `json:"error,omitempty"`
}

// DisplayTitle is the title to render, never empty
func (s State) DisplayTitle() string {
	return title.Display(s.Title)
}

// Message is one entry of the live message list
type Message struct {
	Role    string
	Content string
}

// RoleUser marks a user-authored message
const RoleUser = "user"
