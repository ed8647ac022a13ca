package matching

import (
	"testing"

	"leadrouter_backend/internal/coverage"
	leadrepo "leadrouter_backend/internal/leads/repository"
	vendorrepo "leadrouter_backend/internal/vendors/repository"

	"github.com/google/uuid"
)

func roofingLead() leadrepo.Lead {
	return leadrepo.Lead{
		ID:                uuid.New(),
		County:            "Miami-Dade",
		State:             "FL",
		RequestedCategory: "Roofing",
		RequestedService:  "Shingle Replacement",
	}
}

func countyVendor(name string, counties ...string) vendorrepo.Vendor {
	return vendorrepo.Vendor{
		ID:   uuid.New(),
		Name: name,
		Capabilities: []vendorrepo.Capability{
			{Category: "Roofing"},
		},
		Coverage: coverage.Coverage{Type: coverage.TypeCounty, Counties: counties, States: []string{"FL"}},
	}
}

func TestEligibleCoverageFilter(t *testing.T) {
	lead := roofingLead()
	inArea := countyVendor("in area", "Miami-Dade, FL")
	outArea := countyVendor("out of area", "Broward, FL")
	national := countyVendor("national")
	national.Coverage = coverage.Coverage{Type: coverage.TypeNational}

	got := Eligible(lead, []vendorrepo.Vendor{inArea, outArea, national}, nil)

	if len(got) != 2 {
		t.Fatalf("Eligible returned %d vendors, want 2", len(got))
	}
	if got[0].ID != inArea.ID || got[1].ID != national.ID {
		t.Errorf("wrong vendors matched: %s, %s", got[0].Name, got[1].Name)
	}
}

func TestEligibleCapabilityRules(t *testing.T) {
	tests := []struct {
		name         string
		capabilities []vendorrepo.Capability
		service      string
		want         bool
	}{
		{"category level covers any service", []vendorrepo.Capability{{Category: "Roofing"}}, "Shingle Replacement", true},
		{"matching specific service", []vendorrepo.Capability{{Category: "Roofing", SpecificService: "Shingle Replacement"}}, "Shingle Replacement", true},
		{"category match carries a different specific service", []vendorrepo.Capability{{Category: "Roofing", SpecificService: "Gutter Repair"}}, "Shingle Replacement", true},
		{"specific service match under another category", []vendorrepo.Capability{{Category: "Exteriors", SpecificService: "Shingle Replacement"}}, "Shingle Replacement", true},
		{"different category", []vendorrepo.Capability{{Category: "Plumbing"}}, "Shingle Replacement", false},
		{"different category and different specific service", []vendorrepo.Capability{{Category: "Plumbing", SpecificService: "Drain Cleaning"}}, "Shingle Replacement", false},
		{"case insensitive category", []vendorrepo.Capability{{Category: "roofing"}}, "Shingle Replacement", true},
		{"lead without specific service accepts specialist", []vendorrepo.Capability{{Category: "Roofing", SpecificService: "Gutter Repair"}}, "", true},
		{"no capabilities", nil, "Shingle Replacement", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := roofingLead()
			lead.RequestedService = tt.service
			vendor := vendorrepo.Vendor{
				ID:           uuid.New(),
				Capabilities: tt.capabilities,
				Coverage:     coverage.Coverage{Type: coverage.TypeNational},
			}

			got := Eligible(lead, []vendorrepo.Vendor{vendor}, nil)
			if matched := len(got) == 1; matched != tt.want {
				t.Errorf("matched = %v, want %v", matched, tt.want)
			}
		})
	}
}

func TestEligibleExclusionWinsOverFit(t *testing.T) {
	lead := roofingLead()
	vendor := countyVendor("perfect fit", "Miami-Dade, FL")

	got := Eligible(lead, []vendorrepo.Vendor{vendor}, map[uuid.UUID]struct{}{vendor.ID: {}})
	if len(got) != 0 {
		t.Fatalf("excluded vendor still matched")
	}
}

func TestEligibleUnresolvedLocationOnlyWildcards(t *testing.T) {
	lead := roofingLead()
	lead.County = ""
	lead.State = ""

	county := countyVendor("county", "Miami-Dade, FL")
	state := countyVendor("state")
	state.Coverage = coverage.Coverage{Type: coverage.TypeState, States: []string{"FL"}}
	global := countyVendor("global")
	global.Coverage = coverage.Coverage{Type: coverage.TypeGlobal}

	got := Eligible(lead, []vendorrepo.Vendor{county, state, global}, nil)
	if len(got) != 1 || got[0].ID != global.ID {
		t.Fatalf("unresolved location should match wildcard coverage only, got %d", len(got))
	}
}

func TestEligibleEmptyPool(t *testing.T) {
	if got := Eligible(roofingLead(), nil, nil); len(got) != 0 {
		t.Fatalf("empty pool matched %d vendors", len(got))
	}
}
