package classify

import "fmt"

// Gender is the label assigned to a username.
type Gender string

const (
	Male    Gender = "M"
	Female  Gender = "F"
	Unknown Gender = "U"
)

// ParseGender accepts exactly the codes M, F and U.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case Male, Female, Unknown:
		return g, nil
	default:
		return "", fmt.Errorf("invalid gender code %q", s)
	}
}

// Resolved reports whether g is terminal, i.e. M or F.
func (g Gender) Resolved() bool {
	return g == Male || g == Female
}
