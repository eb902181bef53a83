package api

import (
	"errors"
	"net/http"

	"github.com/naybourhood/naybourhood-server/internal/airtable"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
)

type airtableProxyRequest struct {
	Action string         `json:"action"`
	Table  string         `json:"table"`
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`

	PageSize        int    `json:"page_size,omitempty"`
	Offset          string `json:"offset,omitempty"`
	View            string `json:"view,omitempty"`
	FilterByFormula string `json:"filter_by_formula,omitempty"`
}

// AirtableProxy executes one upstream tabular-store operation on behalf
// of the client, keeping the API key server-side. Upstream errors pass
// through with their original status.
func (h *Handlers) AirtableProxy(w http.ResponseWriter, r *http.Request) {
	if h.airtable == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "airtable is not configured")
		return
	}

	var req airtableProxyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Table == "" {
		httputil.BadRequest(w, "table is required")
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "list":
		records, offset, err := h.airtable.ListPage(ctx, req.Table, airtable.ListOptions{
			PageSize:        req.PageSize,
			Offset:          req.Offset,
			View:            req.View,
			FilterByFormula: req.FilterByFormula,
		})
		if err != nil {
			writeAirtableError(w, err)
			return
		}
		if records == nil {
			records = []airtable.Record{}
		}
		resp := map[string]any{"records": records}
		if offset != "" {
			resp["offset"] = offset
		}
		httputil.OK(w, resp)

	case "get":
		if req.ID == "" {
			httputil.BadRequest(w, "id is required")
			return
		}
		record, err := h.airtable.Get(ctx, req.Table, req.ID)
		if err != nil {
			writeAirtableError(w, err)
			return
		}
		httputil.OK(w, record)

	case "create":
		record, err := h.airtable.Create(ctx, req.Table, req.Fields)
		if err != nil {
			writeAirtableError(w, err)
			return
		}
		httputil.Created(w, record)

	case "update":
		if req.ID == "" {
			httputil.BadRequest(w, "id is required")
			return
		}
		record, err := h.airtable.Update(ctx, req.Table, req.ID, req.Fields)
		if err != nil {
			writeAirtableError(w, err)
			return
		}
		httputil.OK(w, record)

	case "delete":
		if req.ID == "" {
			httputil.BadRequest(w, "id is required")
			return
		}
		if err := h.airtable.Delete(ctx, req.Table, req.ID); err != nil {
			writeAirtableError(w, err)
			return
		}
		httputil.NoContent(w)

	default:
		httputil.BadRequest(w, "action must be list, get, create, update, or delete")
	}
}

// writeAirtableError forwards upstream status codes so clients see the
// same errors they would talking to the store directly.
func writeAirtableError(w http.ResponseWriter, err error) {
	var apiErr *airtable.APIError
	if errors.As(err, &apiErr) {
		httputil.Error(w, apiErr.Status, apiErr.Message)
		return
	}
	httputil.InternalError(w, err)
}
