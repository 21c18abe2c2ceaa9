// Package roles holds the closed set of forum roles. The set is fixed at
// compile time; the admin panel assigns roles but can never invent new ones.
package roles

// Role is one of the four fixed member categories.
type Role string

const (
	Admin    Role = "admin"
	Kapitan  Role = "kapitan"
	Trener   Role = "trener"
	Zawodnik Role = "zawodnik"
)

// Default is the role every new member starts with.
const Default = Zawodnik

// All returns the roles in canonical display order.
func All() []Role {
	return []Role{Admin, Kapitan, Trener, Zawodnik}
}

// Valid reports whether r belongs to the closed role set.
func Valid(r Role) bool {
	switch r {
	case Admin, Kapitan, Trener, Zawodnik:
		return true
	}
	return false
}

// Parse converts a stored role value, falling back to Default for
// anything outside the closed set so no actor is ever roleless.
func Parse(s string) Role {
	r := Role(s)
	if !Valid(r) {
		return Default
	}
	return r
}
