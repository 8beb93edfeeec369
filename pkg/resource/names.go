package resource

import "regexp"

var namePatterns = map[Kind]*regexp.Regexp{
	KindVM:         regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`),
	KindAppService: regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,58}[a-zA-Z0-9]$`),
	KindSchedule:   regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`),
}

// ValidName reports whether name satisfies the naming grammar of kind.
// Unknown kinds never validate.
func ValidName(name string, kind Kind) bool {
	re, ok := namePatterns[kind]
	if !ok {
		return false
	}
	return re.MatchString(name)
}

// InvalidNames returns the members of names that fail ValidName, in order.
func InvalidNames(names []string, kind Kind) []string {
	var invalid []string
	for _, n := range names {
		if !ValidName(n, kind) {
			invalid = append(invalid, n)
		}
	}
	return invalid
}
