package enums

import "fmt"

// Unit is the measurement unit an inventory item is counted in.
type Unit string

const (
	UnitPieces Unit = "pcs"
	UnitKilos  Unit = "kg"
	UnitLiters Unit = "L"
)

var validUnits = []Unit{
	UnitPieces,
	UnitKilos,
	UnitLiters,
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known Unit.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// Fractional reports whether quantities in this unit may carry a fraction.
// Piece counts must stay whole.
func (u Unit) Fractional() bool {
	return u == UnitKilos || u == UnitLiters
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	for _, candidate := range validUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}
