package models

import "strings"

// Address is embedded in clients and business profiles. All fields optional.
type Address struct {
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	City       string `gorm:"size:100" json:"city"`
	Province   string `gorm:"size:100" json:"province"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
	Country    string `gorm:"size:100" json:"country"`
}

// Display renders the address as postal lines, skipping blanks:
//
//	line1
//	line2
//	city, province
//	postal country
func (a Address) Display() string {
	var parts []string

	if strings.TrimSpace(a.Line1) != "" {
		parts = append(parts, a.Line1)
	}
	if strings.TrimSpace(a.Line2) != "" {
		parts = append(parts, a.Line2)
	}

	var cityBits []string
	for _, v := range []string{a.City, a.Province} {
		if strings.TrimSpace(v) != "" {
			cityBits = append(cityBits, v)
		}
	}
	if len(cityBits) > 0 {
		parts = append(parts, strings.Join(cityBits, ", "))
	}

	var postalBits []string
	for _, v := range []string{a.PostalCode, a.Country} {
		if strings.TrimSpace(v) != "" {
			postalBits = append(postalBits, v)
		}
	}
	if len(postalBits) > 0 {
		parts = append(parts, strings.Join(postalBits, " "))
	}

	return strings.Join(parts, "\n")
}

// Lines returns the postal lines of Display as a slice.
func (a Address) Lines() []string {
	display := a.Display()
	if display == "" {
		return nil
	}
	return strings.Split(display, "\n")
}

// IsZero reports whether every field is blank.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1+a.Line2+a.City+a.Province+a.PostalCode+a.Country) == ""
}
