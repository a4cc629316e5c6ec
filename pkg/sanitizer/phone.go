package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// fallbackRegions are tried when the number has no country prefix and the
// guest gave no usable country.
var fallbackRegions = []string{"US", "GB", "DE", "FR"}

// NormalizePhone formats phone as E.164. The guest's country is tried first
// so local numbers resolve correctly. Unparseable numbers yield "".
func NormalizePhone(phone, country string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	regions := fallbackRegions
	if c := NormalizeCountry(country); c != "" {
		regions = append([]string{c}, fallbackRegions...)
	}

	for _, region := range regions {
		parsed, err := phonenumbers.Parse(phone, region)
		if err != nil {
			continue
		}
		return phonenumbers.Format(parsed, phonenumbers.E164)
	}
	return ""
}
