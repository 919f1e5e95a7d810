package scraper

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotAPrice is returned when no usable digit sequence survives
// normalization of a price fragment.
var ErrNotAPrice = errors.New("text does not contain a price")

var nonPriceChars = regexp.MustCompile(`[^0-9,.]`)

// ParsePrice converts a free-text price fragment ("1.234,56 TL") into a
// decimal rounded to 2 places. The site formats thousands with "." and
// decimals with ",", so periods are dropped and the comma becomes the
// decimal point.
func ParsePrice(text string) (decimal.Decimal, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, ErrNotAPrice
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrNotAPrice
	}
	return price.Round(2), nil
}
