package enums

import "fmt"

// AssemblyStatus describes the allowed values for the assemblies.status column.
type AssemblyStatus string

const (
	AssemblyStatusPlanned    AssemblyStatus = "Planned"
	AssemblyStatusInProgress AssemblyStatus = "In Progress"
	AssemblyStatusCompleted  AssemblyStatus = "Completed"
)

var validAssemblyStatuses = []AssemblyStatus{
	AssemblyStatusPlanned,
	AssemblyStatusInProgress,
	AssemblyStatusCompleted,
}

// IsValid reports whether the value matches the canonical assembly status enum.
func (s AssemblyStatus) IsValid() bool {
	for _, candidate := range validAssemblyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssemblyStatus converts the raw string to AssemblyStatus.
func ParseAssemblyStatus(value string) (AssemblyStatus, error) {
	for _, candidate := range validAssemblyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assembly status %q", value)
}
