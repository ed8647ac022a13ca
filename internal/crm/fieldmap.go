package crm

// FieldMap translates opaque external custom-field ids into canonical field
// names. It is resolved once at startup and shared by reconciliation and
// assignment code paths; unknown field ids are dropped rather than guessed.
type FieldMap struct {
	byExternalID map[string]string
}

// NewFieldMap builds a map from external field id to canonical name.
func NewFieldMap(entries map[string]string) *FieldMap {
	byID := make(map[string]string, len(entries))
	for externalID, canonical := range entries {
		byID[externalID] = canonical
	}
	return &FieldMap{byExternalID: byID}
}

// DefaultFieldMap covers the custom-field ids provisioned in the CRM account.
func DefaultFieldMap() *FieldMap {
	return NewFieldMap(map[string]string{
		"fld_service_category": FieldCategory,
		"fld_specific_service": FieldSpecificService,
		"fld_coverage_area":    FieldRawCoverage,
		"fld_assigned_user":    FieldExternalUserRef,
		"fld_vendor_status":    FieldStatus,
		"fld_accepting_work":   FieldAcceptingWork,
		"fld_close_rate":       FieldCloseRate,
		"fld_capabilities":     FieldCapabilities,
		"fld_postal_code":      FieldZip,
	})
}

// Canonical resolves an external field id.
func (m *FieldMap) Canonical(externalID string) (string, bool) {
	name, ok := m.byExternalID[externalID]
	return name, ok
}

// Apply translates a raw external-id-keyed field set into canonical names,
// dropping ids the map does not know.
func (m *FieldMap) Apply(raw map[string]string) map[string]string {
	fields := make(map[string]string, len(raw))
	for externalID, value := range raw {
		if canonical, ok := m.byExternalID[externalID]; ok {
			fields[canonical] = value
		}
	}
	return fields
}
