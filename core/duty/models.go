package duty

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
)

type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
	SlotManual    Slot = "manual"
)

// Label is the slot name used in notifications.
func (s Slot) Label() string {
	switch s {
	case SlotMorning:
		return "jutranji termin"
	case SlotAfternoon:
		return "popoldanski termin"
	default:
		return "ročni izbor"
	}
}

var (
	// errors
	ErrNotFound     = errors.New("selection not found")
	ErrNoEligible   = errors.New("no eligible person")
	ErrAlreadyDrawn = errors.New("an auto selection was already recorded for this slot")
)

// Selection is one duty assignment. Rows are append-only; only the email snapshot
// may be backfilled later.
type Selection struct {
	ID           string    `json:"id"`
	PersonID     string    `json:"person_id"`
	CoffeeTypeID string    `json:"coffee_type_id,omitempty"`
	SelectedAt   time.Time `json:"selected_at"` // UTC
	Source       Source    `json:"source"`
	Slot         Slot      `json:"slot,omitempty"`
	EmailSubject string    `json:"email_subject,omitempty"`
	EmailBody    string    `json:"email_body,omitempty"`
	AutoKey      string    `json:"-"` // "2006-01-02/<slot>" for auto rows, empty otherwise
}

// SelectionFilter applies AND operation on the set fields.
type SelectionFilter struct {
	Source   Source    `query:"source"`
	PersonID string    `query:"person_id"`
	Since    time.Time `query:"since"`
	Limit    int       `query:"limit"`
}

type Repository interface {
	// CreateSelection fails with ErrAlreadyDrawn when the AutoKey is already taken.
	CreateSelection(ctx context.Context, sel Selection) (Selection, error)
	GetSelection(ctx context.Context, id string) (Selection, error)
	// QuerySelections returns the matching rows, most recent first.
	QuerySelections(ctx context.Context, filter SelectionFilter) ([]Selection, error)
	HasAutoSelection(ctx context.Context, autoKey string) (bool, error)
	UpdateSelectionEmail(ctx context.Context, id, subject, body string) error
	DeleteAutoSelections(ctx context.Context) (int, error)
}

// Roster is what the duty service needs to know about people.
type Roster interface {
	Eligible(ctx context.Context, presentOnly bool) ([]roster.Person, error)
	GetPerson(ctx context.Context, id string) (roster.Person, error)
	QueryPeople(ctx context.Context, filter *roster.QueryFilter, ordering []core.DBOrdering) ([]roster.Person, error)
	CoffeeTypeIndex(ctx context.Context) (map[string]roster.CoffeeType, error)
}

type Status string

const (
	StatusDrawn         Status = "drawn"
	StatusResent        Status = "resent"
	StatusNoEligible    Status = "no_eligible"
	StatusWrongTime     Status = "wrong_time"
	StatusAutomationOff Status = "automation_off"
	StatusAlreadyDrawn  Status = "already_drawn"
)

// DrawResult is the outcome of a draw. Every status except drawn/resent is a no-op.
type DrawResult struct {
	Status        Status         `json:"status"`
	Reason        string         `json:"reason,omitempty"`
	Selection     *Selection     `json:"selection,omitempty"`
	Person        *roster.Person `json:"person,omitempty"`
	Standings     []PersonStats  `json:"standings,omitempty"`
	NotifyWarning string         `json:"notify_warning,omitempty"`
}

func (r DrawResult) Drawn() bool { return r.Status == StatusDrawn }

type HistoryEntry struct {
	Selection
	PersonName string `json:"person_name"`
	CoffeeType string `json:"coffee_type,omitempty"`
}

type DayCount struct {
	Date  string `json:"date"` // 2006-01-02, schedule time zone
	Count int    `json:"count"`
}

type Dashboard struct {
	PeopleCount       int                `json:"people_count"`
	PresentCount      int                `json:"present_count"`
	MostActive        *roster.Person     `json:"most_active,omitempty"`
	MostActiveCount   int                `json:"most_active_count"`
	FavoriteCoffee    *roster.CoffeeType `json:"favorite_coffee,omitempty"`
	LastSelection     *HistoryEntry      `json:"last_selection,omitempty"`
	PerDay            []DayCount         `json:"per_day"`
	NextRun           time.Time          `json:"next_run"`
	AutomationEnabled bool               `json:"automation_enabled"`
}
