package service

import (
	roster "github.com/zenGate-Global/inspection-scheduler/domains/roster/be/service"
)

// qualifiedInspectors keeps roster members that are active and certified for
// both the inspection type and the property type. An empty result is a normal
// outcome, not an error.
func qualifiedInspectors(pool []roster.Inspector, req InspectionRequest) []roster.Inspector {
	qualified := make([]roster.Inspector, 0, len(pool))
	for _, inspector := range pool {
		if !inspector.Active {
			continue
		}
		if !inspector.Certified(req.InspectionType, req.PropertyType) {
			continue
		}
		qualified = append(qualified, inspector)
	}
	return qualified
}
