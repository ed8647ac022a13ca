package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"
)

// HTTPClient is a thin JSON adapter over the CRM's record API. The engine
// only depends on the Client interface; this adapter exists for wiring the
// composition root.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	fieldMap *FieldMap
	client   *http.Client
	log      *logger.Logger
}

// NewHTTPClient creates a CRM client for the configured endpoint.
func NewHTTPClient(baseURL, apiKey string, fieldMap *FieldMap, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		fieldMap: fieldMap,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

type recordPayload struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PostalCode   string    `json:"postalCode"`
	UpdatedAt    time.Time `json:"updatedAt"`
	CustomFields []struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"customFields"`
}

type listPayload struct {
	Records []recordPayload `json:"records"`
}

// GetRecord implements Client.
func (c *HTTPClient) GetRecord(ctx context.Context, externalRef string) (Record, error) {
	var payload recordPayload
	status, err := c.doJSON(ctx, http.MethodGet, "/records/"+url.PathEscape(externalRef), nil, &payload)
	if err != nil {
		return Record{}, err
	}
	if status == http.StatusNotFound {
		return Record{}, apperr.NotFound("crm record not found: " + externalRef)
	}
	if status != http.StatusOK {
		return Record{}, apperr.Unavailable(fmt.Sprintf("crm get record: unexpected status %d", status))
	}
	return c.toRecord(payload), nil
}

// ListRecords implements Client.
func (c *HTTPClient) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	var payload listPayload
	status, err := c.doJSON(ctx, http.MethodGet, "/records?kind="+url.QueryEscape(string(filter.Kind)), nil, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperr.Unavailable(fmt.Sprintf("crm list records: unexpected status %d", status))
	}

	records := make([]Record, 0, len(payload.Records))
	for _, raw := range payload.Records {
		records = append(records, c.toRecord(raw))
	}
	return records, nil
}

// PushAssignment implements Client.
func (c *HTTPClient) PushAssignment(ctx context.Context, leadExternalRef, vendorExternalUserRef string) error {
	body := map[string]string{"assignedTo": vendorExternalUserRef}
	status, err := c.doJSON(ctx, http.MethodPut, "/records/"+url.PathEscape(leadExternalRef)+"/assignment", body, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return apperr.NotFound("crm record not found: " + leadExternalRef)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return apperr.Unavailable(fmt.Sprintf("crm push assignment: unexpected status %d", status))
	}
	return nil
}

func (c *HTTPClient) toRecord(payload recordPayload) Record {
	raw := make(map[string]string, len(payload.CustomFields))
	for _, field := range payload.CustomFields {
		raw[field.ID] = field.Value
	}
	fields := c.fieldMap.Apply(raw)

	// Standard fields are canonical already.
	if payload.FirstName != "" {
		fields[FieldFirstName] = payload.FirstName
	}
	if payload.LastName != "" {
		fields[FieldLastName] = payload.LastName
	}
	if payload.Email != "" {
		fields[FieldEmail] = payload.Email
	}
	if payload.Phone != "" {
		fields[FieldPhone] = payload.Phone
	}
	if payload.PostalCode != "" {
		fields[FieldZip] = payload.PostalCode
	}

	return Record{ExternalRef: payload.ID, UpdatedAt: payload.UpdatedAt, Fields: fields}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("crm request failed", "method", method, "path", path, "error", err)
		return 0, apperr.Wrap(apperr.KindUnavailable, "crm unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperr.Wrap(apperr.KindUnavailable, "crm payload invalid", err)
		}
	}
	return resp.StatusCode, nil
}

// Compile-time check that HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
