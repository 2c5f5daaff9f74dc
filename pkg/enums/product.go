package enums

import "fmt"

// ProductType groups catalog items and decides which size vocabulary applies.
type ProductType string

const (
	ProductTypeShoe   ProductType = "shoe"
	ProductTypeBijoux ProductType = "bijoux"
	ProductTypeSac    ProductType = "sac"
	ProductTypeOther  ProductType = "other"
)

var validProductTypes = []ProductType{
	ProductTypeShoe,
	ProductTypeBijoux,
	ProductTypeSac,
	ProductTypeOther,
}

// SizeOption is one allowed size value and its display label.
type SizeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var sizesByType = map[ProductType][]SizeOption{
	ProductTypeShoe: {
		{"36", "36"}, {"37", "37"}, {"38", "38"}, {"39", "39"}, {"40", "40"},
		{"41", "41"}, {"42", "42"}, {"43", "43"}, {"44", "44"}, {"45", "45"},
		{"one_size", "One size"},
	},
	ProductTypeBijoux: {
		{"small", "Small"}, {"medium", "Medium"}, {"large", "Large"}, {"one_size", "One size"},
	},
	ProductTypeSac: {
		{"small", "Small"}, {"medium", "Medium"}, {"large", "Large"}, {"extra_large", "Extra large"},
	},
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// Sizes returns the size vocabulary for the type; nil means free text.
func (p ProductType) Sizes() []SizeOption {
	return sizesByType[p]
}

// SizeLabel resolves a stored size into its display label. Unknown values and
// free-text types echo the raw size.
func (p ProductType) SizeLabel(size string) string {
	for _, opt := range sizesByType[p] {
		if opt.Value == size {
			return opt.Label
		}
	}
	return size
}

// ValidSize reports whether size belongs to the type's vocabulary. Empty sizes
// and free-text types always pass.
func (p ProductType) ValidSize(size string) bool {
	opts, ok := sizesByType[p]
	if !ok || size == "" {
		return true
	}
	for _, opt := range opts {
		if opt.Value == size {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
