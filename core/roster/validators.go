package roster

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
)

var (
	presenceTag  = "presence_or_update"
	presenceText = "nothing to update"
)

// InitValidators registers the roster struct validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(updatePersonStructValidation, UpdatePerson{})
	core.RegisterCustomTranslation(validate, translator, presenceTag, presenceText)
}

// updatePersonStructValidation rejects updates that set nothing.
func updatePersonStructValidation(sl validator.StructLevel) {
	up := sl.Current().Interface().(UpdatePerson)
	if up.FirstName == "" && up.LastName == "" && up.Email == "" && !up.ClearEmail &&
		up.DefaultCoffeeTypeID == "" && !up.ClearCoffeeType && up.IsPresent == nil {
		sl.ReportError(up.FirstName, "first_name", "FirstName", presenceTag, "")
	}
}

func (np *NewPerson) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	np.Clean()
	if err := validate.Struct(np); err != nil {
		return err
	}
	if err := svc.checkEmailUniqueness(ctx, np.Email, ""); err != nil {
		return err
	}
	return svc.checkCoffeeType(ctx, np.DefaultCoffeeTypeID)
}

func (up *UpdatePerson) Validate(ctx context.Context, orig Person, validate *validator.Validate, svc *Service) error {
	up.Clean()
	if err := validate.Struct(up); err != nil {
		return err
	}
	if !up.ClearEmail {
		if err := svc.checkEmailUniqueness(ctx, up.Email, orig.ID); err != nil {
			return err
		}
	}
	if !up.ClearCoffeeType && up.DefaultCoffeeTypeID != orig.DefaultCoffeeTypeID {
		return svc.checkCoffeeType(ctx, up.DefaultCoffeeTypeID)
	}
	return nil
}

func (nc *NewCoffeeType) Validate(validate *validator.Validate) error {
	nc.Clean()
	return validate.Struct(nc)
}

func (uc *UpdateCoffeeType) Validate(validate *validator.Validate) error {
	uc.Clean()
	return validate.Struct(uc)
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email, exclID string) error {
	if email == "" {
		return nil
	}
	p, err := svc.repo.GetPersonByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking email uniqueness")
	case p.ID == exclID:
		return nil
	}
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) checkCoffeeType(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	ct, err := svc.repo.GetCoffeeType(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !ct.Active) {
		return core.NewValidationError(
			ErrCoffeeTypeNotFound,
			core.FieldError{Field: "default_coffee_type_id", Error: ErrCoffeeTypeNotFound.Error()},
		)
	}
	return errors.Wrap(err, "checking coffee type")
}
