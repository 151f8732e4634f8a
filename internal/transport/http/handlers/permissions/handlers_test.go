package permissionshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"bizdesk/internal/domain/audit"
	"bizdesk/internal/domain/auth"
	"bizdesk/internal/transport/http/middleware"
)

type fakeOverrides struct {
	docs map[string]auth.OverrideDocument
}

func newFakeOverrides() *fakeOverrides {
	return &fakeOverrides{docs: map[string]auth.OverrideDocument{}}
}

func (f *fakeOverrides) key(tenantID string, role auth.Role) string {
	return tenantID + "/" + string(role)
}

func (f *fakeOverrides) GetOverride(_ context.Context, tenantID string, role auth.Role) (auth.OverrideDocument, error) {
	doc, ok := f.docs[f.key(tenantID, role)]
	if !ok {
		return auth.OverrideDocument{}, auth.ErrOverrideNotFound
	}
	return doc, nil
}

func (f *fakeOverrides) UpsertOverride(_ context.Context, tenantID string, role auth.Role, doc auth.OverrideDocument) error {
	f.docs[f.key(tenantID, role)] = doc
	return nil
}

func (f *fakeOverrides) DeleteOverrides(_ context.Context, tenantID string, role auth.Role) error {
	if role == "" {
		for k := range f.docs {
			if strings.HasPrefix(k, tenantID+"/") {
				delete(f.docs, k)
			}
		}
		return nil
	}
	delete(f.docs, f.key(tenantID, role))
	return nil
}

func (f *fakeOverrides) ListOverrides(_ context.Context, tenantID string) (map[auth.Role]auth.OverrideDocument, error) {
	out := map[auth.Role]auth.OverrideDocument{}
	for k, doc := range f.docs {
		if strings.HasPrefix(k, tenantID+"/") {
			out[auth.Role(strings.TrimPrefix(k, tenantID+"/"))] = doc
		}
	}
	return out, nil
}

func newTestRouter(overrides auth.OverrideStore) http.Handler {
	h := NewHandler(auth.NewResolver(overrides), overrides, &audit.Store{})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func requestAs(t *testing.T, handler http.Handler, role auth.Role, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if role != "" {
		ctx := middleware.WithUser(req.Context(), auth.UserContext{
			UserID: "u1", TenantID: "t1", Role: role,
		})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return envelope.Data
}

func TestMeReturnsIdentityAndGrants(t *testing.T) {
	overrides := newFakeOverrides()
	overrides.docs["t1/employee"] = auth.OverrideDocument{
		Version: auth.OverrideSchemaVersion,
		Grants:  map[string]bool{auth.PermContactsDel: true},
	}
	router := newTestRouter(overrides)

	rec := requestAs(t, router, "", http.MethodGet, "/me", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me: got %d, want 401", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleEmployee, http.MethodGet, "/me", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/me: got %d, want 200", rec.Code)
	}
	data := decodeData(t, rec)
	if data["userId"] != "u1" || data["tenantId"] != "t1" || data["role"] != "employee" {
		t.Fatalf("identity = %v", data)
	}
	grants := data["grants"].(map[string]any)
	if granted, _ := grants[auth.PermContactsDel].(bool); !granted {
		t.Error("override grant not reflected in /me grants")
	}
	if granted, _ := grants[auth.PermBillingManage].(bool); granted {
		t.Error("employee must not hold billing.manage")
	}
}

func TestCatalogRequiresAuth(t *testing.T) {
	router := newTestRouter(newFakeOverrides())

	rec := requestAs(t, router, "", http.MethodGet, "/permissions/catalog", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous catalog: got %d, want 401", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleEmployee, http.MethodGet, "/permissions/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("employee catalog: got %d, want 200", rec.Code)
	}
	data := decodeData(t, rec)
	defs, ok := data["permissions"].([]any)
	if !ok || len(defs) != len(auth.Catalog()) {
		t.Fatalf("catalog returned %d definitions, want %d", len(defs), len(auth.Catalog()))
	}
}

func TestEffectiveReflectsOverride(t *testing.T) {
	overrides := newFakeOverrides()
	overrides.docs["t1/manager"] = auth.OverrideDocument{
		Version: auth.OverrideSchemaVersion,
		Grants:  map[string]bool{auth.PermContactsDel: true},
	}
	router := newTestRouter(overrides)

	rec := requestAs(t, router, auth.RoleManager, http.MethodGet, "/permissions/effective", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("effective: got %d, want 200", rec.Code)
	}
	grants := decodeData(t, rec)["grants"].(map[string]any)
	if granted, _ := grants[auth.PermContactsDel].(bool); !granted {
		t.Error("override grant not reflected in effective set")
	}
	if granted, _ := grants[auth.PermBillingManage].(bool); granted {
		t.Error("manager must not hold billing.manage by default")
	}
}

func TestEffectiveOtherRoleNeedsSettingsView(t *testing.T) {
	router := newTestRouter(newFakeOverrides())

	rec := requestAs(t, router, auth.RoleEmployee, http.MethodGet, "/permissions/effective?role=manager", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee inspecting manager: got %d, want 403", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleAdministrator, http.MethodGet, "/permissions/effective?role=manager", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("administrator inspecting manager: got %d, want 200", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleAdministrator, http.MethodGet, "/permissions/effective?role=superuser", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role query: got %d, want 400", rec.Code)
	}
}

func TestSetOverrideOwnerOnly(t *testing.T) {
	router := newTestRouter(newFakeOverrides())
	body := `{"version":1,"grants":{"contacts.delete":true}}`

	rec := requestAs(t, router, auth.RoleAdministrator, http.MethodPut, "/permissions/roles/manager", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("administrator editing overrides: got %d, want 403", rec.Code)
	}

	rec = requestAs(t, router, "", http.MethodPut, "/permissions/roles/manager", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous editing overrides: got %d, want 401", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/manager", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner editing overrides: got %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestSetOverrideRejectsOwnerRole(t *testing.T) {
	router := newTestRouter(newFakeOverrides())
	body := `{"version":1,"grants":{"billing.manage":false}}`

	rec := requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/owner", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("editing owner role: got %d, want 400", rec.Code)
	}
}

func TestSetOverrideRejectsUnknownRoleAndVersion(t *testing.T) {
	router := newTestRouter(newFakeOverrides())

	rec := requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/superuser",
		`{"version":1,"grants":{"contacts.view":true}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: got %d, want 400", rec.Code)
	}

	rec = requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/manager",
		`{"version":99,"grants":{"contacts.view":true}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported version: got %d, want 400", rec.Code)
	}
}

func TestSetOverrideFiltersUnknownKeys(t *testing.T) {
	overrides := newFakeOverrides()
	router := newTestRouter(overrides)

	rec := requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/employee",
		`{"version":1,"grants":{"contacts.edit":true,"warp.drive":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set override: got %d, want 200", rec.Code)
	}

	data := decodeData(t, rec)
	ignored, _ := data["ignoredKeys"].([]any)
	if len(ignored) != 1 || ignored[0] != "warp.drive" {
		t.Errorf("ignoredKeys = %v, want [warp.drive]", ignored)
	}

	stored := overrides.docs["t1/employee"]
	if _, found := stored.Grants["warp.drive"]; found {
		t.Error("unknown key persisted in override document")
	}
	if !stored.Grants["contacts.edit"] {
		t.Error("known key missing from stored override")
	}

	rec = requestAs(t, router, auth.RoleOwner, http.MethodPut, "/permissions/roles/employee",
		`{"version":1,"grants":{"warp.drive":true}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("all-unknown grants: got %d, want 400", rec.Code)
	}
}

func TestResetOverrideRestoresDefaults(t *testing.T) {
	overrides := newFakeOverrides()
	overrides.docs["t1/manager"] = auth.OverrideDocument{
		Version: auth.OverrideSchemaVersion,
		Grants:  map[string]bool{auth.PermCampaignsSend: false},
	}
	router := newTestRouter(overrides)

	rec := requestAs(t, router, auth.RoleOwner, http.MethodDelete, "/permissions/roles/manager", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: got %d, want 200", rec.Code)
	}
	if _, found := overrides.docs["t1/manager"]; found {
		t.Error("override row still present after reset")
	}
	grants := decodeData(t, rec)["grants"].(map[string]any)
	if granted, _ := grants[auth.PermCampaignsSend].(bool); !granted {
		t.Error("manager default campaigns.send not restored after reset")
	}

	// Resetting again is a no-op, not an error.
	rec = requestAs(t, router, auth.RoleOwner, http.MethodDelete, "/permissions/roles/manager", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("second reset: got %d, want 200", rec.Code)
	}
}

func TestListRolesMarksCustomized(t *testing.T) {
	overrides := newFakeOverrides()
	overrides.docs["t1/employee"] = auth.OverrideDocument{
		Version: auth.OverrideSchemaVersion,
		Grants:  map[string]bool{auth.PermContactsEdit: true},
	}
	router := newTestRouter(overrides)

	rec := requestAs(t, router, auth.RoleOwner, http.MethodGet, "/permissions/roles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list roles: got %d, want 200", rec.Code)
	}
	roles, _ := decodeData(t, rec)["roles"].([]any)
	if len(roles) != len(auth.Roles()) {
		t.Fatalf("matrix has %d roles, want %d", len(roles), len(auth.Roles()))
	}
	for _, entry := range roles {
		row := entry.(map[string]any)
		customized, _ := row["customized"].(bool)
		if row["role"] == "employee" && !customized {
			t.Error("employee row not marked customized")
		}
		if row["role"] == "manager" && customized {
			t.Error("manager row wrongly marked customized")
		}
	}
}
