package roster

import (
	"strings"
	"time"

	"github.com/trezcool/coffeeduty/core"
)

type CoffeeType struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Icon      string    `json:"icon" db:"icon"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Label is the icon followed by the name, e.g. "☕ Espresso".
func (ct CoffeeType) Label() string {
	return strings.TrimSpace(ct.Icon + " " + ct.Name)
}

type Person struct {
	ID                  string    `json:"id"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Email               string    `json:"email"`
	DefaultCoffeeTypeID string    `json:"default_coffee_type_id"`
	IsPresent           bool      `json:"is_present"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Eligible reports whether p can be drawn.
func (p Person) Eligible(presentOnly bool) bool {
	return p.Active && (p.IsPresent || !presentOnly)
}

// NewPerson contains information needed to create a new Person.
type NewPerson struct {
	FirstName           string `json:"first_name" validate:"required,max=100,personname"`
	LastName            string `json:"last_name" validate:"required,max=100,personname"`
	Email               string `json:"email" validate:"omitempty,max=200,email"`
	DefaultCoffeeTypeID string `json:"default_coffee_type_id" validate:"omitempty,uuid"`
	IsPresent           *bool  `json:"is_present"`
}

func (np *NewPerson) Clean() {
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.DefaultCoffeeTypeID = core.CleanString(np.DefaultCoffeeTypeID, true /* lower */)
}

// UpdatePerson defines what information may be provided to modify an existing Person.
// Empty fields keep their current value; ClearEmail / ClearCoffeeType unset the optional ones.
type UpdatePerson struct {
	FirstName           string `json:"first_name" validate:"omitempty,max=100,personname"`
	LastName            string `json:"last_name" validate:"omitempty,max=100,personname"`
	Email               string `json:"email" validate:"omitempty,max=200,email"`
	ClearEmail          bool   `json:"clear_email"`
	DefaultCoffeeTypeID string `json:"default_coffee_type_id" validate:"omitempty,uuid"`
	ClearCoffeeType     bool   `json:"clear_coffee_type"`
	IsPresent           *bool  `json:"is_present"`
}

func (up *UpdatePerson) Clean() {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.Email = core.CleanString(up.Email, true /* lower */)
	up.DefaultCoffeeTypeID = core.CleanString(up.DefaultCoffeeTypeID, true /* lower */)
}

// apply merges the update into p.
func (up UpdatePerson) apply(p Person) Person {
	if up.FirstName != "" {
		p.FirstName = up.FirstName
	}
	if up.LastName != "" {
		p.LastName = up.LastName
	}
	if up.ClearEmail {
		p.Email = ""
	} else if up.Email != "" {
		p.Email = up.Email
	}
	if up.ClearCoffeeType {
		p.DefaultCoffeeTypeID = ""
	} else if up.DefaultCoffeeTypeID != "" {
		p.DefaultCoffeeTypeID = up.DefaultCoffeeTypeID
	}
	if up.IsPresent != nil {
		p.IsPresent = *up.IsPresent
	}
	return p
}

type NewCoffeeType struct {
	Name string `json:"name" validate:"required,max=100"`
	Icon string `json:"icon" validate:"omitempty,max=100"`
}

func (nc *NewCoffeeType) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Icon = core.CleanString(nc.Icon)
}

type UpdateCoffeeType struct {
	Name string  `json:"name" validate:"omitempty,max=100"`
	Icon *string `json:"icon" validate:"omitempty,max=100"`
}

func (uc *UpdateCoffeeType) Clean() {
	uc.Name = core.CleanString(uc.Name)
	if uc.Icon != nil {
		icon := core.CleanString(*uc.Icon)
		uc.Icon = &icon
	}
}

// QueryFilter applies AND operation on the set fields.
// Search does a case-insensitive match on one of FirstName, LastName or Email.
type QueryFilter struct {
	Search          string `query:"q"`
	IsPresent       *bool  `query:"is_present"`
	IncludeInactive bool   `query:"include_inactive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Matches applies the filter in memory.
func (qf QueryFilter) Matches(p Person) bool {
	if !qf.IncludeInactive && !p.Active {
		return false
	}
	if qf.IsPresent != nil && p.IsPresent != *qf.IsPresent {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(p.FirstName), s) ||
			strings.Contains(strings.ToLower(p.LastName), s) ||
			strings.Contains(strings.ToLower(p.Email), s)
	}
	return true
}

// DefaultOrdering is last name, then first name.
var DefaultOrdering = []core.DBOrdering{
	{Field: "last_name", Ascending: true},
	{Field: "first_name", Ascending: true},
}

// OrderingFields are the fields people may be ordered by.
var OrderingFields = map[string]bool{
	"first_name": true,
	"last_name":  true,
	"email":      true,
	"created_at": true,
	"is_present": true,
}
