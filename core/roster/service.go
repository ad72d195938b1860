package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
)

var (
	// errors
	ErrNotFound           = errors.New("not found")
	ErrEmailExists        = errors.New("a person with this email already exists")
	ErrHasHistory         = errors.New("person has duty history; deactivate instead of deleting")
	ErrCoffeeTypeNotFound = errors.New("coffee type not found")
)

type (
	Repository interface {
		CreatePerson(ctx context.Context, p Person) (Person, error)
		GetPerson(ctx context.Context, id string) (Person, error)
		GetPersonByEmail(ctx context.Context, email string) (Person, error)
		QueryPeople(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Person, error)
		UpdatePerson(ctx context.Context, p Person) (Person, error)
		// DeletePerson removes the row; it fails with ErrHasHistory when selections reference it.
		DeletePerson(ctx context.Context, id string) error

		CreateCoffeeType(ctx context.Context, ct CoffeeType) (CoffeeType, error)
		GetCoffeeType(ctx context.Context, id string) (CoffeeType, error)
		QueryCoffeeTypes(ctx context.Context, includeInactive bool) ([]CoffeeType, error)
		UpdateCoffeeType(ctx context.Context, ct CoffeeType) (CoffeeType, error)
	}

	Service struct {
		repo    Repository
		nowFunc func() time.Time
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFunc: time.Now}
}

// NewServiceMock returns a Service whose clock is fixed by nowFunc.
func NewServiceMock(repo Repository, nowFunc func() time.Time) *Service {
	return &Service{repo: repo, nowFunc: nowFunc}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// People

func (svc *Service) CreatePerson(ctx context.Context, np NewPerson) (Person, error) {
	now := svc.now()
	isPresent := true
	if np.IsPresent != nil {
		isPresent = *np.IsPresent
	}
	p := Person{
		ID:                  uuid.New().String(),
		FirstName:           np.FirstName,
		LastName:            np.LastName,
		Email:               np.Email,
		DefaultCoffeeTypeID: np.DefaultCoffeeTypeID,
		IsPresent:           isPresent,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	p, err := svc.repo.CreatePerson(ctx, p)
	return p, errors.Wrap(err, "creating person")
}

func (svc *Service) GetPerson(ctx context.Context, id string) (Person, error) {
	return svc.repo.GetPerson(ctx, id)
}

func (svc *Service) QueryPeople(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Person, error) {
	if len(ordering) == 0 {
		ordering = DefaultOrdering
	}
	return svc.repo.QueryPeople(ctx, filter, ordering)
}

// Eligible returns the active people, optionally only those marked present.
func (svc *Service) Eligible(ctx context.Context, presentOnly bool) ([]Person, error) {
	filter := &QueryFilter{}
	if presentOnly {
		filter.IsPresent = core.BoolPtr(true)
	}
	people, err := svc.repo.QueryPeople(ctx, filter, DefaultOrdering)
	return people, errors.Wrap(err, "querying eligible people")
}

func (svc *Service) UpdatePerson(ctx context.Context, orig Person, up UpdatePerson) (Person, error) {
	p := up.apply(orig)
	p.UpdatedAt = svc.now()
	p, err := svc.repo.UpdatePerson(ctx, p)
	return p, errors.Wrap(err, "updating person")
}

func (svc *Service) SetPresence(ctx context.Context, id string, present bool) (Person, error) {
	p, err := svc.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	if p.IsPresent == present {
		return p, nil
	}
	p.IsPresent = present
	p.UpdatedAt = svc.now()
	p, err = svc.repo.UpdatePerson(ctx, p)
	return p, errors.Wrap(err, "setting presence")
}

// DeactivatePerson soft-deletes p; its history is kept.
func (svc *Service) DeactivatePerson(ctx context.Context, id string) error {
	p, err := svc.repo.GetPerson(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	p.UpdatedAt = svc.now()
	_, err = svc.repo.UpdatePerson(ctx, p)
	return errors.Wrap(err, "deactivating person")
}

// DeletePerson hard-deletes a person without history.
func (svc *Service) DeletePerson(ctx context.Context, id string) error {
	if err := svc.repo.DeletePerson(ctx, id); err != nil {
		if errors.Is(err, ErrHasHistory) {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}

// Coffee types

func (svc *Service) CreateCoffeeType(ctx context.Context, nc NewCoffeeType) (CoffeeType, error) {
	now := svc.now()
	ct := CoffeeType{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		Icon:      nc.Icon,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ct, err := svc.repo.CreateCoffeeType(ctx, ct)
	return ct, errors.Wrap(err, "creating coffee type")
}

func (svc *Service) GetCoffeeType(ctx context.Context, id string) (CoffeeType, error) {
	return svc.repo.GetCoffeeType(ctx, id)
}

func (svc *Service) QueryCoffeeTypes(ctx context.Context, includeInactive bool) ([]CoffeeType, error) {
	return svc.repo.QueryCoffeeTypes(ctx, includeInactive)
}

func (svc *Service) UpdateCoffeeType(ctx context.Context, orig CoffeeType, uc UpdateCoffeeType) (CoffeeType, error) {
	ct := orig
	if uc.Name != "" {
		ct.Name = uc.Name
	}
	if uc.Icon != nil {
		ct.Icon = *uc.Icon
	}
	ct.UpdatedAt = svc.now()
	ct, err := svc.repo.UpdateCoffeeType(ctx, ct)
	return ct, errors.Wrap(err, "updating coffee type")
}

// DeactivateCoffeeType soft-deletes ct; people keep referencing it.
func (svc *Service) DeactivateCoffeeType(ctx context.Context, id string) error {
	ct, err := svc.repo.GetCoffeeType(ctx, id)
	if err != nil {
		return err
	}
	ct.Active = false
	ct.UpdatedAt = svc.now()
	_, err = svc.repo.UpdateCoffeeType(ctx, ct)
	return errors.Wrap(err, "deactivating coffee type")
}

// CoffeeTypeIndex maps every coffee type (active or not) by ID.
func (svc *Service) CoffeeTypeIndex(ctx context.Context) (map[string]CoffeeType, error) {
	cts, err := svc.repo.QueryCoffeeTypes(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying coffee types")
	}
	idx := make(map[string]CoffeeType, len(cts))
	for _, ct := range cts {
		idx[ct.ID] = ct
	}
	return idx, nil
}
