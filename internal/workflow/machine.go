package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"showroom-gateway/internal/models"

	"github.com/rotisserie/eris"
)

// Inventory is the write side a workflow commits through. Implementations are
// expected to be bound to the caller's transaction.
type Inventory interface {
	// FindVehicle returns nil, nil when no vehicle has the code.
	FindVehicle(ctx context.Context, tenantID, code string) (*models.Vehicle, error)
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	UpdatePrice(ctx context.Context, tenantID, code string, price int64) error
}

type Input struct {
	Text     string
	MediaRef string
}

// Result of one Advance. State is nil once the workflow reached PhaseDone.
type Result struct {
	Phase Phase
	State *State
	Reply string
}

type stepEnv struct {
	tenantID string
	inv      Inventory
	now      time.Time
}

type stepOutcome struct {
	advance bool
	ack     string
}

type step struct {
	prompt string
	handle func(ctx context.Context, env stepEnv, s *State, in Input) (stepOutcome, error)
}

type definition struct {
	intro  string
	steps  []step
	init   func(s *State)
	commit func(ctx context.Context, env stepEnv, s *State) (string, error)
}

func definitionFor(t Type) (*definition, error) {
	switch t {
	case VehicleUpload:
		return &uploadDefinition, nil
	case VehicleEdit:
		return &editDefinition, nil
	default:
		return nil, eris.Errorf("unknown workflow type %q", t)
	}
}

type Machine struct {
	inactivity time.Duration
}

// NewMachine returns a Machine that expires workflows idle for longer than
// inactivity. Zero disables expiry.
func NewMachine(inactivity time.Duration) *Machine {
	return &Machine{inactivity: inactivity}
}

// Start begins a fresh workflow and returns it with the first prompt.
func (m *Machine) Start(t Type, startedBy string, now time.Time) (*State, string, error) {
	def, err := definitionFor(t)
	if err != nil {
		return nil, "", err
	}
	s := &State{
		Type:           t,
		Step:           1,
		StartedBy:      startedBy,
		StartedAt:      now,
		LastActivityAt: now,
	}
	def.init(s)
	return s, def.intro + "\n\n" + def.steps[0].prompt, nil
}

// Expired reports whether s has been idle past the inactivity window.
func (m *Machine) Expired(s *State, now time.Time) bool {
	if s == nil || m.inactivity <= 0 {
		return false
	}
	return now.Sub(s.LastActivityAt) > m.inactivity
}

// Prompt returns the question the workflow is currently waiting on.
func Prompt(s *State) string {
	if s == nil {
		return ""
	}
	def, err := definitionFor(s.Type)
	if err != nil || s.Step < 1 || int(s.Step) > len(def.steps) {
		return ""
	}
	return def.steps[s.Step-1].prompt
}

// Advance feeds one input to the current step. Input that does not parse
// re-prompts and keeps the workflow at its step; it never abandons it. When
// the last step completes the workflow commits through inv, and a commit
// error is returned untouched so the caller can roll back.
func (m *Machine) Advance(ctx context.Context, inv Inventory, tenantID string, current *State, in Input, now time.Time) (Result, error) {
	if current == nil {
		return Result{Phase: PhaseIdle}, eris.New("no active workflow")
	}
	def, err := definitionFor(current.Type)
	if err != nil {
		return Result{}, err
	}
	if current.Step < 1 || int(current.Step) > len(def.steps) {
		return Result{}, eris.Errorf("workflow %s at invalid step %d", current.Type, current.Step)
	}

	s := current.Clone()
	s.Resume()
	s.LastActivityAt = now
	env := stepEnv{tenantID: tenantID, inv: inv, now: now}
	st := def.steps[s.Step-1]

	out, err := st.handle(ctx, env, s, in)
	var perr *ParseError
	if errors.As(err, &perr) {
		s.Retries++
		return Result{Phase: PhaseCollecting, State: s, Reply: perr.Hint + "\n" + st.prompt}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if !out.advance {
		return Result{Phase: PhaseCollecting, State: s, Reply: out.ack}, nil
	}

	if int(s.Step) == len(def.steps) {
		reply, err := def.commit(ctx, env, s)
		if err != nil {
			return Result{Phase: PhaseCommitting, State: s}, eris.Wrapf(err, "commit %s", s.Type)
		}
		return Result{Phase: PhaseDone, Reply: reply}, nil
	}

	s.Step++
	s.Retries = 0
	reply := def.steps[s.Step-1].prompt
	if out.ack != "" {
		reply = out.ack + "\n" + reply
	}
	return Result{Phase: PhaseCollecting, State: s, Reply: reply}, nil
}

// Describe is a one-line summary of a pending workflow for reminders.
func Describe(s *State) string {
	if s == nil {
		return ""
	}
	switch s.Type {
	case VehicleUpload:
		return "upload mobil"
	case VehicleEdit:
		return "ubah harga mobil"
	default:
		return strings.ReplaceAll(string(s.Type), "_", " ")
	}
}
