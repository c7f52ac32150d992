package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// ItemIDLength is the fixed length of a marketplace item identifier.
const ItemIDLength = 10

// IsValidItemID reports whether id is exactly ItemIDLength ASCII alphanumerics.
func IsValidItemID(id string) bool {
	if len(id) != ItemIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// ValidateProduct ensures the extractor captured the required fields.
func ValidateProduct(p *models.ProductRecord) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if !IsValidItemID(p.ID) {
		return fmt.Errorf("product has invalid id %q", p.ID)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product missing title for %s", p.ID)
	}
	if strings.TrimSpace(p.SellerID) == "" {
		return fmt.Errorf("product missing seller id for %s", p.ID)
	}
	return nil
}

// NormalizeText collapses runs of whitespace into single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
