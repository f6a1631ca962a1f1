package wallet

import "regexp"

var (
	addressPattern = regexp.MustCompile(`^nano_[13][13456789abcdefghijkmnopqrstuwxyz]{59}$`)
	hashPattern    = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)
	rawPattern     = regexp.MustCompile(`^[0-9]+$`)
)

// CheckAddress reports whether s is a well-formed nano_ address.
func CheckAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// CheckHash reports whether s is a well-formed block hash.
func CheckHash(s string) bool {
	return hashPattern.MatchString(s)
}

// CheckRawAmount reports whether s is a well-formed base-unit amount.
func CheckRawAmount(s string) bool {
	return rawPattern.MatchString(s) && s != "0"
}

// ExtractAddress returns the first nano_ address found in free text, or "".
func ExtractAddress(input string) string {
	return extractPattern.FindString(input)
}

var extractPattern = regexp.MustCompile(`nano_[13][13456789abcdefghijkmnopqrstuwxyz]{59}`)
