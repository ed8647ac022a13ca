package crmsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/retry"

	"github.com/google/uuid"
)

type pushRecorder struct {
	mu       sync.Mutex
	failures int
	pushes   []string
}

func (p *pushRecorder) GetRecord(context.Context, string) (crm.Record, error) {
	return crm.Record{}, apperr.NotFound("not used")
}

func (p *pushRecorder) ListRecords(context.Context, crm.Filter) ([]crm.Record, error) {
	return nil, nil
}

func (p *pushRecorder) PushAssignment(_ context.Context, leadRef, vendorUserRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return apperr.Unavailable("crm down")
	}
	p.pushes = append(p.pushes, leadRef+"->"+vendorUserRef)
	return nil
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func assignedEvent(leadRef string) events.LeadAssigned {
	return events.LeadAssigned{
		BaseEvent:             events.NewBaseEvent(),
		LeadID:                uuid.New(),
		LeadExternalRef:       leadRef,
		VendorID:              uuid.New(),
		VendorExternalUserRef: "usr_9",
	}
}

func TestPushRetriesTransientFailure(t *testing.T) {
	recorder := &pushRecorder{failures: 2}
	sub := NewSubscriber(recorder, logger.New("test"), testPolicy())

	err := sub.handleLeadAssigned(context.Background(), assignedEvent("rec_1"))
	if err != nil {
		t.Fatalf("handleLeadAssigned: %v", err)
	}
	if len(recorder.pushes) != 1 || recorder.pushes[0] != "rec_1->usr_9" {
		t.Fatalf("pushes = %v", recorder.pushes)
	}
}

func TestPushGivesUpAfterExhaustion(t *testing.T) {
	recorder := &pushRecorder{failures: 10}
	sub := NewSubscriber(recorder, logger.New("test"), testPolicy())

	err := sub.handleLeadAssigned(context.Background(), assignedEvent("rec_1"))
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if len(recorder.pushes) != 0 {
		t.Fatalf("pushes = %v", recorder.pushes)
	}
}

func TestPushSkipsUnsyncedLead(t *testing.T) {
	recorder := &pushRecorder{}
	sub := NewSubscriber(recorder, logger.New("test"), testPolicy())

	if err := sub.handleLeadAssigned(context.Background(), assignedEvent("")); err != nil {
		t.Fatalf("handleLeadAssigned: %v", err)
	}
	if len(recorder.pushes) != 0 {
		t.Fatalf("pushes = %v", recorder.pushes)
	}
}
