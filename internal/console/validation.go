package console

import (
	"math"
	"strconv"
	"strings"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

// ProductInput is the raw form submission. Numbers stay strings until validated.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Vintage     string
	Price       string
	Stock       string
}

// InputFromProduct fills a form from p. Zero numbers of an unsaved product stay blank.
func InputFromProduct(p models.Product) ProductInput {
	in := ProductInput{
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
	}
	saved := p.ID != 0
	if saved || p.Vintage != 0 {
		in.Vintage = strconv.Itoa(p.Vintage)
	}
	if saved || p.Price != 0 {
		in.Price = strconv.FormatFloat(p.Price, 'f', -1, 64)
	}
	if saved || p.Stock != 0 {
		in.Stock = strconv.Itoa(p.Stock)
	}
	return in
}

type FieldError struct {
	Field       string
	Description string
}

// FormError is a local validation failure; nothing was sent to the backend.
type FormError struct {
	Message string
	Fields  []FieldError
}

func (e *FormError) Error() string {
	return e.Message
}

// Has reports whether field failed validation.
func (e *FormError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func validateProduct(in ProductInput) (models.Product, error) {
	required := []struct {
		field string
		value string
	}{
		{"name", in.Name},
		{"description", in.Description},
		{"category", in.Category},
		{"vintage", in.Vintage},
		{"price", in.Price},
		{"stock", in.Stock},
	}

	missing := []FieldError{}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, FieldError{Field: r.field, Description: r.field + " is required"})
		}
	}
	if len(missing) > 0 {
		return models.Product{}, &FormError{Message: MsgFieldsRequired, Fields: missing}
	}

	invalid := []FieldError{}
	vintage, err := strconv.Atoi(strings.TrimSpace(in.Vintage))
	if err != nil {
		invalid = append(invalid, FieldError{Field: "vintage", Description: "vintage must be a whole number"})
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		invalid = append(invalid, FieldError{Field: "price", Description: "price must be a number"})
	}
	stock, err := strconv.Atoi(strings.TrimSpace(in.Stock))
	if err != nil {
		invalid = append(invalid, FieldError{Field: "stock", Description: "stock must be a whole number"})
	}
	if len(invalid) > 0 {
		return models.Product{}, &FormError{Message: MsgInvalidNumbers, Fields: invalid}
	}

	return models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Vintage:     vintage,
		Price:       price,
		Stock:       stock,
	}, nil
}
