package reconcile

import (
	"context"
	"testing"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	leadrepo "leadrouter_backend/internal/leads/repository"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeCRM struct {
	records map[string]crm.Record
	fail    map[string]error
}

func (f *fakeCRM) GetRecord(_ context.Context, ref string) (crm.Record, error) {
	if err, ok := f.fail[ref]; ok {
		return crm.Record{}, err
	}
	record, ok := f.records[ref]
	if !ok {
		return crm.Record{}, apperr.NotFound("record not found")
	}
	return record, nil
}

func (f *fakeCRM) ListRecords(_ context.Context, filter crm.Filter) ([]crm.Record, error) {
	out := make([]crm.Record, 0, len(f.records))
	for _, record := range f.records {
		switch filter.Kind {
		case crm.KindVendor:
			if vendorQualifies(record) {
				out = append(out, record)
			}
		case crm.KindLead:
			if leadQualifies(record) {
				out = append(out, record)
			}
		}
	}
	return out, nil
}

func (f *fakeCRM) PushAssignment(context.Context, string, string) error { return nil }

type fakeVendorStore struct {
	byID map[uuid.UUID]vendorrepo.Vendor
	// leads, when set, receives the deletion cascade: leads held by a
	// deleted vendor are released back to the routable pool.
	leads *fakeLeadStore
}

func newFakeVendorStore(vendors ...vendorrepo.Vendor) *fakeVendorStore {
	s := &fakeVendorStore{byID: map[uuid.UUID]vendorrepo.Vendor{}}
	for _, v := range vendors {
		s.byID[v.ID] = v
	}
	return s
}

func (s *fakeVendorStore) ListSynced(context.Context, uuid.UUID) ([]vendorrepo.Vendor, error) {
	out := make([]vendorrepo.Vendor, 0, len(s.byID))
	for _, v := range s.byID {
		if v.ExternalRef != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeVendorStore) Create(_ context.Context, v vendorrepo.Vendor) (vendorrepo.Vendor, error) {
	s.byID[v.ID] = v
	return v, nil
}

func (s *fakeVendorStore) UpdateFromSoT(_ context.Context, v vendorrepo.Vendor) (vendorrepo.Vendor, error) {
	existing, ok := s.byID[v.ID]
	if !ok {
		return vendorrepo.Vendor{}, apperr.NotFound("vendor not found")
	}
	v.LastAssignedAt = existing.LastAssignedAt
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now()
	s.byID[v.ID] = v
	return v, nil
}

func (s *fakeVendorStore) DeleteStale(_ context.Context, id uuid.UUID, batchStart time.Time) (bool, error) {
	v, ok := s.byID[id]
	if !ok || !v.UpdatedAt.Before(batchStart) {
		return false, nil
	}
	if s.leads != nil {
		for leadID, l := range s.leads.byID {
			if l.AssignedVendorID != nil && *l.AssignedVendorID == id {
				l.AssignedVendorID = nil
				l.Status = leadrepo.StatusNew
				s.leads.byID[leadID] = l
			}
		}
	}
	delete(s.byID, id)
	return true, nil
}

type fakeLeadStore struct {
	byID map[uuid.UUID]leadrepo.Lead
}

func newFakeLeadStore(leads ...leadrepo.Lead) *fakeLeadStore {
	s := &fakeLeadStore{byID: map[uuid.UUID]leadrepo.Lead{}}
	for _, l := range leads {
		s.byID[l.ID] = l
	}
	return s
}

func (s *fakeLeadStore) ListSynced(context.Context, uuid.UUID) ([]leadrepo.Lead, error) {
	out := make([]leadrepo.Lead, 0, len(s.byID))
	for _, l := range s.byID {
		if l.ExternalRef != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLeadStore) Create(_ context.Context, l leadrepo.Lead) (leadrepo.Lead, error) {
	s.byID[l.ID] = l
	return l, nil
}

func (s *fakeLeadStore) UpdateFromSoT(_ context.Context, l leadrepo.Lead) (leadrepo.Lead, error) {
	existing, ok := s.byID[l.ID]
	if !ok {
		return leadrepo.Lead{}, apperr.NotFound("lead not found")
	}
	l.Status = existing.Status
	l.AssignedVendorID = existing.AssignedVendorID
	l.ReassignCount = existing.ReassignCount
	l.LastReassignKey = existing.LastReassignKey
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now()
	s.byID[l.ID] = l
	return l, nil
}

func (s *fakeLeadStore) DeleteStale(_ context.Context, id uuid.UUID, batchStart time.Time) (bool, error) {
	l, ok := s.byID[id]
	if !ok || !l.UpdatedAt.Before(batchStart) {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

type fakeGeo struct{}

func (fakeGeo) Resolve(_ context.Context, zip string) (coverage.Place, error) {
	if zip == "33139" {
		return coverage.Place{County: "Miami-Dade", State: "FL"}, nil
	}
	return coverage.Place{}, apperr.NotFound("unknown zip")
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event) {}

func (nopBus) PublishSync(context.Context, events.Event) error { return nil }

func (nopBus) Subscribe(string, events.Handler) {}

func vendorRecord(ref string) crm.Record {
	return crm.Record{
		ExternalRef: ref,
		Fields: map[string]string{
			crm.FieldFirstName:       "Rita",
			crm.FieldLastName:        "Reyes",
			crm.FieldEmail:           "Rita@Example.com",
			crm.FieldExternalUserRef: "usr_" + ref,
			crm.FieldStatus:          "Active",
			crm.FieldAcceptingWork:   "true",
			crm.FieldCategory:        "Roofing",
			crm.FieldRawCoverage:     "COUNTIES: Miami-Dade, FL",
			crm.FieldCloseRate:       "35",
		},
	}
}

func leadRecord(ref string) crm.Record {
	return crm.Record{
		ExternalRef: ref,
		Fields: map[string]string{
			crm.FieldFirstName: "Sam",
			crm.FieldLastName:  "Okafor",
			crm.FieldCategory:  "Roofing",
			crm.FieldZip:       "33139",
		},
	}
}

func newTestService(crmClient crm.Client, vendors VendorStore, leads LeadStore) *Service {
	geo := fakeGeo{}
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(crmClient, vendors, leads, coverage.NewNormalizer(geo), geo, nopBus{}, logger.New("test"), clk, uuid.New())
}

func TestReconcileVendorsDiscoversQualifying(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{
		"v1": vendorRecord("v1"),
		"v2": {ExternalRef: "v2", Fields: map[string]string{crm.FieldFirstName: "No", crm.FieldLastName: "User"}},
	}}
	store := newFakeVendorStore()
	svc := newTestService(crmClient, store, newFakeLeadStore())

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Added != 1 || summary.Updated != 0 || summary.Deleted != 0 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	all, _ := store.ListSynced(context.Background(), uuid.Nil)
	if len(all) != 1 {
		t.Fatalf("store has %d vendors", len(all))
	}
	v := all[0]
	if v.ExternalUserRef != "usr_v1" || v.Status != vendorrepo.StatusActive || !v.AcceptingWork {
		t.Errorf("vendor = %+v", v)
	}
	if v.CloseRate != 0.35 {
		t.Errorf("close rate = %v", v.CloseRate)
	}
	if v.Coverage.Type != coverage.TypeCounty || len(v.Coverage.Counties) != 1 || v.Coverage.Counties[0] != "Miami-Dade, FL" {
		t.Errorf("coverage = %+v", v.Coverage)
	}
}

func TestReconcileVendorsSourceOfTruthWins(t *testing.T) {
	record := vendorRecord("v1")
	crmClient := &fakeCRM{records: map[string]crm.Record{"v1": record}}

	stale := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assignedAt := stale.Add(time.Hour)
	local := vendorrepo.Vendor{
		ID:             uuid.New(),
		ExternalRef:    "v1",
		Name:           "Old Name",
		Status:         vendorrepo.StatusInactive,
		RawCoverage:    "GLOBAL",
		Coverage:       coverage.Coverage{Type: coverage.TypeGlobal},
		LastAssignedAt: &assignedAt,
		UpdatedAt:      stale,
	}
	store := newFakeVendorStore(local)
	svc := newTestService(crmClient, store, newFakeLeadStore())

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Updated != 1 || summary.Added != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	got := store.byID[local.ID]
	if got.Name != "Rita Reyes" || got.Status != vendorrepo.StatusActive {
		t.Errorf("local fields were not overwritten: %+v", got)
	}
	if got.Coverage.Type != coverage.TypeCounty {
		t.Errorf("coverage was not re-normalized: %+v", got.Coverage)
	}
	if got.LastAssignedAt == nil || !got.LastAssignedAt.Equal(assignedAt) {
		t.Error("routing stats did not survive the sync")
	}
}

func TestReconcileVendorsDeletesMissing(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{}}
	stale := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	local := vendorrepo.Vendor{ID: uuid.New(), ExternalRef: "gone", UpdatedAt: stale}
	store := newFakeVendorStore(local)
	svc := newTestService(crmClient, store, newFakeLeadStore())

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Deleted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, ok := store.byID[local.ID]; ok {
		t.Error("missing vendor was not deleted")
	}
}

func TestReconcileVendorsWatermarkGuardsDeletion(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{}}
	// Updated after the batch started: a concurrent writer owns it now.
	fresh := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)
	local := vendorrepo.Vendor{ID: uuid.New(), ExternalRef: "gone", UpdatedAt: fresh}
	store := newFakeVendorStore(local)
	svc := newTestService(crmClient, store, newFakeLeadStore())

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Deleted != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, ok := store.byID[local.ID]; !ok {
		t.Error("concurrently updated vendor was deleted")
	}
}

func TestReconcileVendorsErrorIsolation(t *testing.T) {
	stale := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	good := vendorrepo.Vendor{ID: uuid.New(), ExternalRef: "v1", UpdatedAt: stale}
	bad := vendorrepo.Vendor{ID: uuid.New(), ExternalRef: "boom", UpdatedAt: stale}
	crmClient := &fakeCRM{
		records: map[string]crm.Record{"v1": vendorRecord("v1")},
		fail:    map[string]error{"boom": apperr.Unavailable("crm down")},
	}
	store := newFakeVendorStore(good, bad)
	svc := newTestService(crmClient, store, newFakeLeadStore())

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Updated != 1 || summary.Errors != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if _, ok := store.byID[bad.ID]; !ok {
		t.Error("failing record was deleted instead of skipped")
	}
}

func TestReconcileVendorsSecondRunIsNoOp(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{"v1": vendorRecord("v1")}}
	store := newFakeVendorStore()
	svc := newTestService(crmClient, store, newFakeLeadStore())

	if _, err := svc.ReconcileVendors(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Added != 0 || summary.Updated != 0 || summary.Deleted != 0 || summary.Errors != 0 {
		t.Fatalf("second run summary = %+v, want all zero", summary)
	}
}

func TestReconcileVendorsDeletionReleasesHeldLeads(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{}}
	stale := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	vendor := vendorrepo.Vendor{ID: uuid.New(), ExternalRef: "gone", UpdatedAt: stale}
	held := leadrepo.Lead{
		ID:               uuid.New(),
		Status:           leadrepo.StatusAssigned,
		AssignedVendorID: &vendor.ID,
		UpdatedAt:        stale,
	}
	leadStore := newFakeLeadStore(held)
	store := newFakeVendorStore(vendor)
	store.leads = leadStore
	svc := newTestService(crmClient, store, leadStore)

	summary, err := svc.ReconcileVendors(context.Background())
	if err != nil {
		t.Fatalf("ReconcileVendors: %v", err)
	}
	if summary.Deleted != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	got := leadStore.byID[held.ID]
	if got.AssignedVendorID != nil {
		t.Error("released lead still references the deleted vendor")
	}
	if got.Status != leadrepo.StatusNew {
		t.Errorf("released lead status = %s, want %s", got.Status, leadrepo.StatusNew)
	}
}

func TestReconcileLeadsDiscoverAndPreserveRoutingState(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{
		"l1": leadRecord("l1"),
		"l2": {ExternalRef: "l2", Fields: map[string]string{
			crm.FieldCategory:        "Roofing",
			crm.FieldExternalUserRef: "usr_taken",
		}},
	}}
	store := newFakeLeadStore()
	svc := newTestService(crmClient, newFakeVendorStore(), store)

	summary, err := svc.ReconcileLeads(context.Background())
	if err != nil {
		t.Fatalf("ReconcileLeads: %v", err)
	}
	// l2 already has an operator attached, so it never qualifies.
	if summary.Added != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	all, _ := store.ListSynced(context.Background(), uuid.Nil)
	lead := all[0]
	if lead.Status != leadrepo.StatusNew || lead.County != "Miami-Dade" || lead.State != "FL" {
		t.Fatalf("lead = %+v", lead)
	}

	// Assign locally and change the record upstream, then re-run: the CRM
	// fields must flow in without clobbering routing state.
	vendorID := uuid.New()
	lead.Status = leadrepo.StatusAssigned
	lead.AssignedVendorID = &vendorID
	lead.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store.byID[lead.ID] = lead

	changed := leadRecord("l1")
	changed.Fields[crm.FieldFirstName] = "Samuel"
	crmClient.records["l1"] = changed

	second, err := svc.ReconcileLeads(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Updated != 1 {
		t.Fatalf("second run summary = %+v", second)
	}
	got := store.byID[lead.ID]
	if got.FirstName != "Samuel" {
		t.Errorf("first name = %q, want the fresh CRM value", got.FirstName)
	}
	if got.Status != leadrepo.StatusAssigned || got.AssignedVendorID == nil {
		t.Errorf("routing state was clobbered: %+v", got)
	}
}

func TestReconcileLeadsUnchangedRunIsNoOp(t *testing.T) {
	crmClient := &fakeCRM{records: map[string]crm.Record{"l1": leadRecord("l1")}}
	store := newFakeLeadStore()
	svc := newTestService(crmClient, newFakeVendorStore(), store)

	if _, err := svc.ReconcileLeads(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := svc.ReconcileLeads(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Added != 0 || summary.Updated != 0 || summary.Deleted != 0 || summary.Errors != 0 {
		t.Fatalf("second run summary = %+v, want all zero", summary)
	}
}

func TestLeadQualifies(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   bool
	}{
		{"category and no user", map[string]string{crm.FieldCategory: "Roofing"}, true},
		{"no category", map[string]string{}, false},
		{"already owned", map[string]string{crm.FieldCategory: "Roofing", crm.FieldExternalUserRef: "usr_1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := leadQualifies(crm.Record{Fields: tt.fields}); got != tt.want {
				t.Errorf("leadQualifies = %v, want %v", got, tt.want)
			}
		})
	}
}
