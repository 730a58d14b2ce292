package subscriptions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuelReschke/AgencyDesk/app/models"
)

// Action names accepted in the admin PATCH body.
const (
	ActionCancel            = "cancel"
	ActionCancelImmediately = "cancel_immediately"
	ActionPause             = "pause"
	ActionResume            = "resume"
	ActionAddUsage          = "add_usage"
	ActionResetHours        = "reset_hours"
	ActionPatch             = "patch"
)

// Command is one admin action on a subscription.
type Command interface {
	Action() string
}

type Cancel struct{}

type CancelImmediately struct{}

type Pause struct{}

type Resume struct{}

type AddUsage struct {
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
}

type ResetHours struct{}

// Patch edits whitelisted fields. Nil pointers are left untouched.
type Patch struct {
	PlanType      *string  `json:"plan_type,omitempty"`
	PlanName      *string  `json:"plan_name,omitempty"`
	MonthlyPrice  *int     `json:"monthly_price,omitempty"`
	HoursIncluded *float64 `json:"hours_included,omitempty"`
	Status        *string  `json:"status,omitempty"`
}

func (Cancel) Action() string            { return ActionCancel }
func (CancelImmediately) Action() string { return ActionCancelImmediately }
func (Pause) Action() string             { return ActionPause }
func (Resume) Action() string            { return ActionResume }
func (AddUsage) Action() string          { return ActionAddUsage }
func (ResetHours) Action() string        { return ActionResetHours }
func (Patch) Action() string             { return ActionPatch }

// touchesRemote reports whether the command has a Stripe counterpart.
func touchesRemote(cmd Command) bool {
	switch cmd.(type) {
	case Cancel, CancelImmediately, Pause, Resume:
		return true
	}
	return false
}

// ParseCommand decodes a PATCH body of the form {"action": "...", ...}.
func ParseCommand(body []byte) (Command, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: ongeldige JSON", ErrInvalidCommand)
	}

	switch strings.TrimSpace(head.Action) {
	case ActionCancel:
		return Cancel{}, nil
	case ActionCancelImmediately:
		return CancelImmediately{}, nil
	case ActionPause:
		return Pause{}, nil
	case ActionResume:
		return Resume{}, nil
	case ActionResetHours:
		return ResetHours{}, nil
	case ActionAddUsage:
		var cmd AddUsage
		if err := json.Unmarshal(body, &cmd); err != nil {
			return nil, fmt.Errorf("%w: ongeldige uren", ErrInvalidCommand)
		}
		cmd.Description = strings.TrimSpace(cmd.Description)
		if cmd.Description == "" {
			return nil, fmt.Errorf("%w: omschrijving is verplicht", ErrInvalidCommand)
		}
		if cmd.Hours <= 0 {
			return nil, fmt.Errorf("%w: uren moeten groter dan 0 zijn", ErrInvalidCommand)
		}
		return cmd, nil
	case ActionPatch, "":
		var cmd Patch
		if err := json.Unmarshal(body, &cmd); err != nil {
			return nil, fmt.Errorf("%w: ongeldige velden", ErrInvalidCommand)
		}
		if err := cmd.validate(); err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("%w: onbekende actie %q", ErrInvalidCommand, head.Action)
	}
}

func (p Patch) validate() error {
	if p.PlanType == nil && p.PlanName == nil && p.MonthlyPrice == nil && p.HoursIncluded == nil && p.Status == nil {
		return fmt.Errorf("%w: geen velden om bij te werken", ErrInvalidCommand)
	}
	if p.Status != nil && !models.IsValidSubscriptionStatus(*p.Status) {
		return fmt.Errorf("%w: ongeldige status %q", ErrInvalidCommand, *p.Status)
	}
	if p.MonthlyPrice != nil && *p.MonthlyPrice < 0 {
		return fmt.Errorf("%w: prijs mag niet negatief zijn", ErrInvalidCommand)
	}
	if p.HoursIncluded != nil && *p.HoursIncluded < 0 {
		return fmt.Errorf("%w: uren mogen niet negatief zijn", ErrInvalidCommand)
	}
	return nil
}

// EncodeCommand produces the PendingCommand column value for the outbox.
func EncodeCommand(cmd Command) []byte {
	var payload interface{}
	switch c := cmd.(type) {
	case AddUsage:
		payload = struct {
			Action string `json:"action"`
			AddUsage
		}{c.Action(), c}
	case Patch:
		payload = struct {
			Action string `json:"action"`
			Patch
		}{c.Action(), c}
	default:
		payload = map[string]string{"action": cmd.Action()}
	}
	b, _ := json.Marshal(payload)
	return b
}
