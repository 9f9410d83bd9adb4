package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/survey-integrity-scorer/internal/pkg/httputil"
	"github.com/ignite/survey-integrity-scorer/internal/store"
)

// parseHierarchyFilter reads limit/offset/date_from/date_to from the
// query string (§6.1). Returns false and writes the 400 response
// itself on a malformed date.
func parseHierarchyFilter(w http.ResponseWriter, r *http.Request) (store.HierarchyFilter, bool) {
	q := r.URL.Query()
	filter := store.HierarchyFilter{}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid limit")
			return filter, false
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "invalid offset")
			return filter, false
		}
		filter.Offset = n
	}
	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.BadRequest(w, "invalid date_from, expected ISO-8601 UTC")
			return filter, false
		}
		filter.DateFrom = t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.BadRequest(w, "invalid date_to, expected ISO-8601 UTC")
			return filter, false
		}
		filter.DateTo = t
	}
	filter.Normalize()
	return filter, true
}
