// Package workflow implements the multi-step data collection flows staff run
// over chat. A flow moves Idle → Collecting(1..N) → Committing → Done; the
// Suspended flag is orthogonal and only records that an unrelated command ran
// while the flow was waiting for input.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

type Type string

const (
	VehicleUpload Type = "vehicle_upload"
	VehicleEdit   Type = "vehicle_edit"
)

// Step is interpreted relative to the workflow Type.
type Step int

const (
	UploadBasics Step = iota + 1
	UploadSpecs
	UploadMileage
	UploadPhotos
)

const (
	EditSelect Step = iota + 1
	EditPrice
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseCommitting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

type UploadFields struct {
	Brand        string   `json:"brand,omitempty"`
	Model        string   `json:"model,omitempty"`
	Year         int      `json:"year,omitempty"`
	Color        string   `json:"color,omitempty"`
	Transmission string   `json:"transmission,omitempty"`
	Price        int64    `json:"price,omitempty"`
	MileageKm    int      `json:"mileage_km,omitempty"`
	Photos       []string `json:"photos,omitempty"`
}

type EditFields struct {
	Code         string `json:"code,omitempty"`
	Label        string `json:"label,omitempty"`
	CurrentPrice int64  `json:"current_price,omitempty"`
	NewPrice     int64  `json:"new_price,omitempty"`
}

// State is the persisted workflow of one conversation. Exactly one of the
// per-type field groups is set, matching Type.
type State struct {
	Type           Type          `json:"type"`
	Step           Step          `json:"step"`
	Upload         *UploadFields `json:"upload,omitempty"`
	Edit           *EditFields   `json:"edit,omitempty"`
	StartedBy      string        `json:"started_by"`
	StartedAt      time.Time     `json:"started_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	Suspended      bool          `json:"suspended"`
	SuspendedAt    *time.Time    `json:"suspended_at,omitempty"`
	Retries        int           `json:"retries"`
}

// Suspend marks the workflow as interrupted by an unrelated command. Step and
// collected fields are left untouched.
func (s *State) Suspend(now time.Time) {
	s.Suspended = true
	s.SuspendedAt = &now
}

func (s *State) Resume() {
	s.Suspended = false
	s.SuspendedAt = nil
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	if s.Upload != nil {
		u := *s.Upload
		u.Photos = append([]string(nil), s.Upload.Photos...)
		c.Upload = &u
	}
	if s.Edit != nil {
		e := *s.Edit
		c.Edit = &e
	}
	if s.SuspendedAt != nil {
		t := *s.SuspendedAt
		c.SuspendedAt = &t
	}
	return &c
}

// Encode serializes s for the conversation row. A nil state encodes to "".
func Encode(s *State) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", eris.Wrap(err, "encode workflow state")
	}
	return string(b), nil
}

func Decode(raw string) (*State, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, eris.Wrap(err, "decode workflow state")
	}
	if s.Type == "" {
		return nil, nil
	}
	return &s, nil
}
