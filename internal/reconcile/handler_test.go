package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadrouter_backend/internal/crm"

	"github.com/gin-gonic/gin"
)

type fakeEnqueuer struct {
	queued []string
}

func (f *fakeEnqueuer) EnqueueReconcileVendors(_ context.Context, trigger string) error {
	f.queued = append(f.queued, "vendors:"+trigger)
	return nil
}

func (f *fakeEnqueuer) EnqueueReconcileLeads(_ context.Context, trigger string) error {
	f.queued = append(f.queued, "leads:"+trigger)
	return nil
}

func newTestRouter(enq Enqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := newTestService(&fakeCRM{records: map[string]crm.Record{}}, newFakeVendorStore(), newFakeLeadStore())
	engine := gin.New()
	NewHandler(svc, enq).RegisterRoutes(engine.Group("/admin"))
	return engine
}

func TestHandlerRunsBatchInline(t *testing.T) {
	engine := newTestRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/vendors", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"updated"`) {
		t.Errorf("body = %s, want a summary", w.Body.String())
	}
}

func TestHandlerAsyncQueuesBatch(t *testing.T) {
	enq := &fakeEnqueuer{}
	engine := newTestRouter(enq)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/leads?async=true", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(enq.queued) != 1 || enq.queued[0] != "leads:manual" {
		t.Errorf("queued = %v", enq.queued)
	}
}

func TestHandlerAsyncWithoutWorkerRunsInline(t *testing.T) {
	engine := newTestRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/vendors?async=true", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want inline 200 fallback", w.Code)
	}
}

func TestHandlerRejectsUnknownEntity(t *testing.T) {
	engine := newTestRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile/partners", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
