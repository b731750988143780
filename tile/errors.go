package tile

import "fmt"

// RangeError records a value that falls outside its permitted domain.
type RangeError struct {
	Name     string
	Value    int
	Min, Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.Name, e.Value, e.Min, e.Max)
}

// CheckRange returns a *RangeError if v is not within [min, max].
func CheckRange(name string, v, min, max int) error {
	if v < min || v > max {
		return &RangeError{Name: name, Value: v, Min: min, Max: max}
	}
	return nil
}
