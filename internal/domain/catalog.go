package domain

import (
	"errors"
	"sort"
)

var (
	ErrAppointmentTypeNotFound = errors.New("appointment type not found")
	ErrAppointmentTypeDisabled = errors.New("appointment type is disabled")
)

// Catalog is an immutable, ordered set of appointment types.
type Catalog struct {
	types []AppointmentType
}

func NewCatalog(types []AppointmentType) Catalog {
	out := make([]AppointmentType, len(types))
	copy(out, types)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return Catalog{types: out}
}

func (c Catalog) GetType(id string) (AppointmentType, error) {
	for _, t := range c.types {
		if t.ID == id {
			return t, nil
		}
	}
	return AppointmentType{}, ErrAppointmentTypeNotFound
}

// Bookable returns the type only if it exists and is enabled.
func (c Catalog) Bookable(id string) (AppointmentType, error) {
	t, err := c.GetType(id)
	if err != nil {
		return AppointmentType{}, err
	}
	if !t.Enabled {
		return AppointmentType{}, ErrAppointmentTypeDisabled
	}
	return t, nil
}

func (c Catalog) ListEnabled() []AppointmentType {
	out := make([]AppointmentType, 0, len(c.types))
	for _, t := range c.types {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

func (c Catalog) Len() int {
	return len(c.types)
}
