package auth

import "testing"

func TestCatalogKeysUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, def := range catalog {
		if _, ok := seen[def.Key]; ok {
			t.Fatalf("duplicate permission key %s", def.Key)
		}
		seen[def.Key] = struct{}{}
	}
}

func TestCatalogMinRolesKnown(t *testing.T) {
	for _, def := range catalog {
		if Rank(def.MinRole) == 0 {
			t.Fatalf("permission %s has unknown min role %q", def.Key, def.MinRole)
		}
		if def.Category == "" || def.Label == "" {
			t.Fatalf("permission %s is missing catalog metadata", def.Key)
		}
	}
}

func TestDefaultMatrixCoversEveryRoleAndKey(t *testing.T) {
	for _, role := range Roles() {
		grants := DefaultGrants(role)
		if len(grants) != len(catalog) {
			t.Fatalf("role %s matrix has %d keys, want %d", role, len(grants), len(catalog))
		}
		for _, def := range catalog {
			if _, ok := grants[def.Key]; !ok {
				t.Fatalf("role %s matrix is missing key %s", role, def.Key)
			}
		}
	}
}

func TestDefaultMatrixMonotonic(t *testing.T) {
	roles := Roles()
	for _, def := range catalog {
		for i := 1; i < len(roles); i++ {
			if DefaultGrant(roles[i-1], def.Key) && !DefaultGrant(roles[i], def.Key) {
				t.Fatalf("default grant for %s drops from %s to %s", def.Key, roles[i-1], roles[i])
			}
		}
	}
}

func TestOwnerDefaultsAllGranted(t *testing.T) {
	for _, def := range catalog {
		if !DefaultGrant(RoleOwner, def.Key) {
			t.Fatalf("owner should hold %s by default", def.Key)
		}
	}
}

func TestUnknownRoleGetsEmptyGrants(t *testing.T) {
	grants := DefaultGrants("superuser")
	if len(grants) != 0 {
		t.Fatalf("unknown role should get an empty grant map, got %d entries", len(grants))
	}
}

func TestUnknownKeyNotGranted(t *testing.T) {
	for _, role := range Roles() {
		if DefaultGrant(role, "nonexistent.key") {
			t.Fatalf("role %s granted a key that does not exist", role)
		}
	}
	if KnownPermission("nonexistent.key") {
		t.Fatal("KnownPermission accepted a key that does not exist")
	}
}

func TestDefaultGrantsReturnsCopy(t *testing.T) {
	grants := DefaultGrants(RoleManager)
	grants[PermContactsDel] = true
	if DefaultGrant(RoleManager, PermContactsDel) {
		t.Fatal("mutating a DefaultGrants copy must not affect the matrix")
	}
}
