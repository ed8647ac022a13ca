package coverage

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

// fakeGeo resolves ZIPs from a fixed table and fails on anything else.
type fakeGeo struct {
	places map[string]Place
	calls  int
}

func (f *fakeGeo) Resolve(_ context.Context, zip string) (Place, error) {
	f.calls++
	if place, ok := f.places[zip]; ok {
		return place, nil
	}
	return Place{}, fmt.Errorf("zip %s not found", zip)
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{places: map[string]Place{
		"33139": {County: "Miami-Dade", State: "FL"},
		"33140": {County: "Miami-Dade", State: "FL"},
		"33301": {County: "Broward", State: "FL"},
		"30301": {County: "Fulton", State: "GA"},
		"10001": {County: "New York", State: "NY"},
		"75201": {County: "Dallas", State: "TX"},
		"90210": {County: "Los Angeles", State: "CA"},
	}}
}

func normalize(t *testing.T, raw string) Result {
	t.Helper()
	n := NewNormalizer(newFakeGeo())
	return n.Normalize(context.Background(), raw)
}

func TestNormalizeSentinels(t *testing.T) {
	tests := []struct {
		raw  string
		want Type
	}{
		{"NATIONAL", TypeNational},
		{"national", TypeNational},
		{"  GLOBAL  ", TypeGlobal},
		{"NONE", TypeCounty},
		{"", TypeCounty},
	}

	for _, tc := range tests {
		res := normalize(t, tc.raw)
		if res.Coverage.Type != tc.want {
			t.Errorf("Normalize(%q).Type = %s, want %s", tc.raw, res.Coverage.Type, tc.want)
		}
		if len(res.Coverage.Counties) != 0 || len(res.Coverage.States) != 0 {
			t.Errorf("Normalize(%q) should leave both sets empty, got %+v", tc.raw, res.Coverage)
		}
	}
}

func TestNormalizeZipTagAndBareListAreEquivalent(t *testing.T) {
	bare := normalize(t, "33139,33140")
	tagged := normalize(t, "ZIP CODES: 33139, 33140")

	if !reflect.DeepEqual(bare.Coverage, tagged.Coverage) {
		t.Fatalf("bare = %+v, tagged = %+v, want identical", bare.Coverage, tagged.Coverage)
	}
	if bare.Coverage.Type != TypeCounty {
		t.Errorf("type = %s, want county for a single-state ZIP list", bare.Coverage.Type)
	}
	if !reflect.DeepEqual(bare.Coverage.Counties, []string{"Miami-Dade, FL"}) {
		t.Errorf("counties = %v, want [Miami-Dade, FL]", bare.Coverage.Counties)
	}
}

func TestNormalizeZipPlusFourTruncatedAndDeduped(t *testing.T) {
	res := normalize(t, "33139-1234; 33139, 33301")

	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Miami-Dade, FL", "Broward, FL"}) {
		t.Errorf("counties = %v", got)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestNormalizeUnresolvableZipSkippedWithWarning(t *testing.T) {
	res := normalize(t, "33139, 99999")

	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Miami-Dade, FL"}) {
		t.Errorf("counties = %v", got)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", res.Warnings)
	}
}

func TestNormalizeInvalidZipTokenSkippedWithWarning(t *testing.T) {
	res := normalize(t, "33139, abcde")

	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Miami-Dade, FL"}) {
		t.Errorf("counties = %v", got)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", res.Warnings)
	}
}

func TestNormalizeTypeInferenceFromStateCardinality(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Type
	}{
		{"one state stays county", "33139,33301", TypeCounty},
		{"two states becomes state", "33139,30301", TypeState},
		{"three states becomes state", "33139,30301,10001", TypeState},
		{"four states becomes national", "33139,30301,10001,75201", TypeNational},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := normalize(t, tc.raw)
			if res.Coverage.Type != tc.want {
				t.Errorf("type = %s, want %s", res.Coverage.Type, tc.want)
			}
			if tc.want == TypeNational && (len(res.Coverage.Counties) != 0 || len(res.Coverage.States) != 0) {
				t.Errorf("national coverage must clear both sets, got %+v", res.Coverage)
			}
			if tc.want == TypeState && len(res.Coverage.Counties) != 0 {
				t.Errorf("state coverage must not keep counties, got %+v", res.Coverage)
			}
		})
	}
}

func TestNormalizeCountiesTag(t *testing.T) {
	res := normalize(t, "COUNTIES: Miami-Dade, FL; Broward County, FL")

	if res.Coverage.Type != TypeCounty {
		t.Fatalf("type = %s, want county", res.Coverage.Type)
	}
	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Miami-Dade, FL", "Broward, FL"}) {
		t.Errorf("counties = %v", got)
	}
	if got := res.Coverage.States; !reflect.DeepEqual(got, []string{"FL"}) {
		t.Errorf("states = %v", got)
	}
}

func TestNormalizeCountyHeuristicWithoutTag(t *testing.T) {
	res := normalize(t, "Miami-Dade County, FL")

	if res.Coverage.Type != TypeCounty {
		t.Fatalf("type = %s, want county", res.Coverage.Type)
	}
	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Miami-Dade, FL"}) {
		t.Errorf("counties = %v", got)
	}
}

func TestNormalizeCountyWithoutStateKeptWithWarning(t *testing.T) {
	res := normalize(t, "Broward County")

	if got := res.Coverage.Counties; !reflect.DeepEqual(got, []string{"Broward"}) {
		t.Errorf("counties = %v", got)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", res.Warnings)
	}
}

func TestNormalizeCountyDirectSkipsGeocoding(t *testing.T) {
	geo := newFakeGeo()
	n := NewNormalizer(geo)
	n.Normalize(context.Background(), "COUNTIES: Miami-Dade, FL")
	n.Normalize(context.Background(), "Lee County, FL")

	if geo.calls != 0 {
		t.Errorf("geo lookup called %d times for explicit county input, want 0", geo.calls)
	}
}

func TestNormalizeStatesTag(t *testing.T) {
	res := normalize(t, "STATES: fl, ga, fl")

	if res.Coverage.Type != TypeState {
		t.Fatalf("type = %s, want state", res.Coverage.Type)
	}
	if got := res.Coverage.States; !reflect.DeepEqual(got, []string{"FL", "GA"}) {
		t.Errorf("states = %v", got)
	}
	if len(res.Coverage.Counties) != 0 {
		t.Errorf("state coverage must not populate counties, got %v", res.Coverage.Counties)
	}
}

func TestNormalizeBareStateCodes(t *testing.T) {
	res := normalize(t, "FL; GA")

	if res.Coverage.Type != TypeState {
		t.Fatalf("type = %s, want state", res.Coverage.Type)
	}
	if got := res.Coverage.States; !reflect.DeepEqual(got, []string{"FL", "GA"}) {
		t.Errorf("states = %v", got)
	}
}

func TestNormalizeGarbageDegradesToEmptyCounty(t *testing.T) {
	res := normalize(t, "???, !!!")

	if res.Coverage.Type != TypeCounty {
		t.Errorf("type = %s, want county", res.Coverage.Type)
	}
	if len(res.Coverage.Counties) != 0 {
		t.Errorf("counties = %v, want empty", res.Coverage.Counties)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected diagnostics for unparseable input")
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	inputs := []string{
		"33139, 33301, 30301",
		"COUNTIES: Miami-Dade, FL; Broward, FL",
		"STATES: FL, GA",
		"NATIONAL",
	}

	n := NewNormalizer(newFakeGeo())
	for _, raw := range inputs {
		first := n.Normalize(context.Background(), raw)
		second := n.Normalize(context.Background(), raw)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Normalize(%q) not deterministic: %+v vs %+v", raw, first, second)
		}
	}
}

func TestCoverageContains(t *testing.T) {
	tests := []struct {
		name     string
		coverage Coverage
		county   string
		state    string
		want     bool
	}{
		{"national matches anywhere", Coverage{Type: TypeNational}, "Dallas", "TX", true},
		{"global matches anywhere", Coverage{Type: TypeGlobal}, "", "", true},
		{"state match", Coverage{Type: TypeState, States: []string{"FL", "GA"}}, "Fulton", "GA", true},
		{"state miss", Coverage{Type: TypeState, States: []string{"FL"}}, "Dallas", "TX", false},
		{"county exact match", Coverage{Type: TypeCounty, Counties: []string{"Miami-Dade, FL"}}, "Miami-Dade", "FL", true},
		{"county miss", Coverage{Type: TypeCounty, Counties: []string{"Miami-Dade, FL"}}, "Broward", "FL", false},
		{"zip coverage matches via counties", Coverage{Type: TypeZip, Counties: []string{"Miami-Dade, FL"}}, "Miami-Dade", "FL", true},
		{"unresolved location only matches wildcards", Coverage{Type: TypeCounty, Counties: []string{"Miami-Dade, FL"}}, "", "", false},
		{"unresolved location state type", Coverage{Type: TypeState, States: []string{"FL"}}, "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coverage.Contains(tc.county, tc.state); got != tc.want {
				t.Errorf("Contains(%q, %q) = %v, want %v", tc.county, tc.state, got, tc.want)
			}
		})
	}
}
