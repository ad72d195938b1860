package roster_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
	inmemdb "github.com/trezcool/coffeeduty/storage/database/inmem"
)

var now = time.Date(2024, time.March, 11, 7, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*roster.Service, *validator.Validate) {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	roster.InitValidators(validate, translator)

	repo := inmemdb.NewRosterRepository(inmemdb.NewDB())
	return roster.NewServiceMock(repo, func() time.Time { return now }), validate
}

func TestService_CreatePerson(t *testing.T) {
	svc, validate := setup(t)
	ctx := context.Background()

	np := roster.NewPerson{FirstName: "  Ana ", LastName: "Novak", Email: " ANA@example.com"}
	require.NoError(t, np.Validate(ctx, validate, svc))
	p, err := svc.CreatePerson(ctx, np)
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Ana Novak", p.FullName())
	assert.Equal(t, "ana@example.com", p.Email)
	assert.True(t, p.IsPresent, "people are present by default")
	assert.True(t, p.Active)
	assert.Equal(t, now, p.CreatedAt)

	absent := roster.NewPerson{FirstName: "Bojan", LastName: "Kranjc", IsPresent: core.BoolPtr(false)}
	require.NoError(t, absent.Validate(ctx, validate, svc))
	p, err = svc.CreatePerson(ctx, absent)
	require.NoError(t, err)
	assert.False(t, p.IsPresent)
}

func TestNewPerson_Validate(t *testing.T) {
	svc, validate := setup(t)
	ctx := context.Background()
	ct, err := svc.CreateCoffeeType(ctx, roster.NewCoffeeType{Name: "Espresso"})
	require.NoError(t, err)
	_, err = svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Ana", LastName: "Novak", Email: "ana@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		np         roster.NewPerson
		wantFields []string
	}{
		{"valid", roster.NewPerson{FirstName: "Žiga", LastName: "O'Neil-Kos", DefaultCoffeeTypeID: ct.ID}, nil},
		{"missing names", roster.NewPerson{}, []string{"first_name", "last_name"}},
		{"digits in name", roster.NewPerson{FirstName: "B0jan", LastName: "Kranjc"}, []string{"first_name"}},
		{"bad email", roster.NewPerson{FirstName: "Bojan", LastName: "Kranjc", Email: "bojan@"}, []string{"email"}},
		{"taken email", roster.NewPerson{FirstName: "Ana", LastName: "Kos", Email: "Ana@Example.com"}, []string{"email"}},
		{"bad coffee type", roster.NewPerson{FirstName: "Ana", LastName: "Kos", DefaultCoffeeTypeID: "nope"}, []string{"default_coffee_type_id"}},
		{
			"unknown coffee type",
			roster.NewPerson{FirstName: "Ana", LastName: "Kos", DefaultCoffeeTypeID: "8f8a2d1c-2b7e-4a4f-9a57-8e6bdfbd0a11"},
			[]string{"default_coffee_type_id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(ctx, validate, svc)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			assert.ElementsMatch(t, tt.wantFields, errorFields(t, err))
		})
	}
}

// errorFields returns the fields reported by a validation error.
func errorFields(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var fields []string
	switch verr := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range verr.Fields {
			fields = append(fields, fe.Field)
		}
	default:
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	return fields
}

func TestService_UpdatePerson(t *testing.T) {
	svc, validate := setup(t)
	ctx := context.Background()
	ct, err := svc.CreateCoffeeType(ctx, roster.NewCoffeeType{Name: "Espresso"})
	require.NoError(t, err)
	orig, err := svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Ana", LastName: "Novak", Email: "ana@example.com"})
	require.NoError(t, err)

	empty := roster.UpdatePerson{}
	assert.ElementsMatch(t, []string{"first_name"}, errorFields(t, empty.Validate(ctx, orig, validate, svc)))

	// keeping the own email is fine
	up := roster.UpdatePerson{Email: "ana@example.com", DefaultCoffeeTypeID: ct.ID}
	require.NoError(t, up.Validate(ctx, orig, validate, svc))
	p, err := svc.UpdatePerson(ctx, orig, up)
	require.NoError(t, err)
	assert.Equal(t, ct.ID, p.DefaultCoffeeTypeID)
	assert.Equal(t, "Novak", p.LastName)

	up = roster.UpdatePerson{ClearEmail: true, ClearCoffeeType: true, IsPresent: core.BoolPtr(false)}
	require.NoError(t, up.Validate(ctx, p, validate, svc))
	p, err = svc.UpdatePerson(ctx, p, up)
	require.NoError(t, err)
	assert.Empty(t, p.Email)
	assert.Empty(t, p.DefaultCoffeeTypeID)
	assert.False(t, p.IsPresent)

	got, err := svc.GetPerson(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestService_PresenceAndEligibility(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	ana, err := svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Ana", LastName: "Novak"})
	require.NoError(t, err)
	bojan, err := svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Bojan", LastName: "Kranjc"})
	require.NoError(t, err)
	cene, err := svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Cene", LastName: "Zupan"})
	require.NoError(t, err)

	_, err = svc.SetPresence(ctx, bojan.ID, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeactivatePerson(ctx, cene.ID))

	ids := func(people []roster.Person) []string {
		out := make([]string, 0, len(people))
		for _, p := range people {
			out = append(out, p.ID)
		}
		return out
	}

	present, err := svc.Eligible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{ana.ID}, ids(present))

	all, err := svc.Eligible(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{bojan.ID, ana.ID}, ids(all))

	_, err = svc.SetPresence(ctx, "missing", true)
	assert.ErrorIs(t, err, roster.ErrNotFound)
}

func TestService_DeletePerson(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, err := svc.CreatePerson(ctx, roster.NewPerson{FirstName: "Ana", LastName: "Novak"})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePerson(ctx, p.ID))
	_, err = svc.GetPerson(ctx, p.ID)
	assert.ErrorIs(t, err, roster.ErrNotFound)
	assert.ErrorIs(t, svc.DeletePerson(ctx, p.ID), roster.ErrNotFound)
}

func TestService_CoffeeTypes(t *testing.T) {
	svc, validate := setup(t)
	ctx := context.Background()

	nc := roster.NewCoffeeType{Name: " Espresso ", Icon: "☕"}
	require.NoError(t, nc.Validate(validate))
	espresso, err := svc.CreateCoffeeType(ctx, nc)
	require.NoError(t, err)
	assert.Equal(t, "☕ Espresso", espresso.Label())

	latte, err := svc.CreateCoffeeType(ctx, roster.NewCoffeeType{Name: "Latte"})
	require.NoError(t, err)
	assert.Equal(t, "Latte", latte.Label())

	icon := ""
	uc := roster.UpdateCoffeeType{Icon: &icon}
	require.NoError(t, uc.Validate(validate))
	espresso, err = svc.UpdateCoffeeType(ctx, espresso, uc)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", espresso.Label())

	require.NoError(t, svc.DeactivateCoffeeType(ctx, latte.ID))
	active, err := svc.QueryCoffeeTypes(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, espresso.ID, active[0].ID)

	idx, err := svc.CoffeeTypeIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, idx, 2)
	assert.False(t, idx[latte.ID].Active)
}
