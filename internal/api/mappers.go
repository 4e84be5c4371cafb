package api

import "github.com/birokt/smittevern/internal/database"

// IncidentToListItem converts a database Incident to a compact list representation.
// Unset statuses are reported as pending.
func IncidentToListItem(i database.Incident) IncidentListItem {
	return IncidentListItem{
		ID:                    i.ID,
		UUID:                  i.UUID,
		Kind:                  i.Kind,
		Status:                i.EffectiveStatus(),
		DiseaseLabel:          i.Disease(),
		HiveRef:               i.HiveRef,
		ApiaryRef:             i.ApiaryRef,
		OriginatingIncidentID: i.OriginatingIncidentID,
		SharedWithRegulator:   i.SharedWithRegulator,
		ResolvedAt:            i.ResolvedAt,
		ResolvedBy:            i.ResolvedBy,
		CreatedAt:             i.CreatedAt,
	}
}

// IncidentsToListItems converts a slice of database Incidents to list items.
func IncidentsToListItems(incidents []database.Incident) []IncidentListItem {
	items := make([]IncidentListItem, len(incidents))
	for i, inc := range incidents {
		items[i] = IncidentToListItem(inc)
	}
	return items
}
