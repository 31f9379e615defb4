package api

import (
	"net/http"
	"strconv"
	"testing"
)

func TestAudit_TracksRESTMutations(t *testing.T) {
	env := newTestEnv(t, nil)

	id := createContact(t, env)
	path := "/api/contacts/" + strconv.FormatInt(id, 10)
	wantStatus(t, env.do(t, http.MethodPut, path, validContact(), "x-api-key", webKey), http.StatusOK)
	wantStatus(t, env.do(t, http.MethodDelete, path, nil, "x-api-key", webKey), http.StatusOK)

	resp := env.do(t, http.MethodGet, "/api/audit?recordId="+strconv.FormatInt(id, 10), nil, "x-admin-key", adminKey)
	wantStatus(t, resp, http.StatusOK)
	data := decode(t, resp)["data"].(map[string]any)
	if data["total"] != float64(3) {
		t.Fatalf("total = %v, want 3", data["total"])
	}
	entries := data["entries"].([]any)
	actions := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		entry := e.(map[string]any)
		actions[entry["action"].(string)] = entry
	}
	for _, a := range []string{"create", "update", "delete"} {
		entry, ok := actions[a]
		if !ok {
			t.Errorf("missing %s entry", a)
			continue
		}
		if entry["project"] != "Proyecto Web Principal" || entry["source"] != "rest" {
			t.Errorf("%s entry = %v", a, entry)
		}
	}
	if d, _ := actions["delete"]["details"].(map[string]any); d["email"] != "ana@example.com" {
		t.Errorf("delete details = %v", actions["delete"]["details"])
	}
}

func TestAudit_RejectedRequestsLeaveNoTrace(t *testing.T) {
	env := newTestEnv(t, nil)

	wantStatus(t, env.do(t, http.MethodDelete, "/api/contacts/404", nil, "x-api-key", webKey), http.StatusNotFound)
	wantStatus(t, env.do(t, http.MethodPost, "/api/contacts", map[string]string{"name": "x"}, "x-api-key", webKey), http.StatusBadRequest)

	resp := env.do(t, http.MethodGet, "/api/audit", nil, "x-admin-key", adminKey)
	wantStatus(t, resp, http.StatusOK)
	if total := decode(t, resp)["data"].(map[string]any)["total"]; total != float64(0) {
		t.Errorf("total = %v, want 0", total)
	}
}

func TestAudit_Guarded(t *testing.T) {
	env := newTestEnv(t, nil)

	wantStatus(t, env.do(t, http.MethodGet, "/api/audit", nil, "x-api-key", webKey), http.StatusForbidden)
	wantStatus(t, env.do(t, http.MethodGet, "/api/audit?limit=abc", nil, "x-admin-key", adminKey), http.StatusBadRequest)
}
