package params

import (
	"errors"
	"fmt"
)

// ErrMissingParam is returned when a required parameter is absent.
var ErrMissingParam = errors.New("missing parameter")

// BrandGroup is the param.cgi group carrying branding.
const BrandGroup = "Brand"

// Brand describes device branding.
type Brand struct {
	Brand         string `json:"brand"`
	ProdFullName  string `json:"prod_full_name"`
	ProdNbr       string `json:"prod_nbr"`
	ProdShortName string `json:"prod_short_name"`
	ProdType      string `json:"prod_type"`
	ProdVariant   string `json:"prod_variant"`
	WebURL        string `json:"web_url"`
}

// DecodeBrand builds a Brand from the Brand group. Every field is required;
// ProdVariant may be empty but must be present.
func DecodeBrand(data map[string]string) (Brand, error) {
	var b Brand
	fields := []struct {
		key string
		dst *string
	}{
		{"Brand", &b.Brand},
		{"ProdFullName", &b.ProdFullName},
		{"ProdNbr", &b.ProdNbr},
		{"ProdShortName", &b.ProdShortName},
		{"ProdType", &b.ProdType},
		{"ProdVariant", &b.ProdVariant},
		{"WebURL", &b.WebURL},
	}
	for _, f := range fields {
		v, ok := data[f.key]
		if !ok {
			return Brand{}, fmt.Errorf("brand: %s: %w", f.key, ErrMissingParam)
		}
		*f.dst = v
	}
	return b, nil
}

// BrandFromParams decodes the Brand group of p.
func BrandFromParams(p Params) (Brand, error) {
	g := p.Group(BrandGroup)
	if g == nil {
		return Brand{}, fmt.Errorf("brand: group %s: %w", BrandGroup, ErrMissingParam)
	}
	return DecodeBrand(g)
}
