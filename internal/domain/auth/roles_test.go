package auth

import "testing"

func TestRankOrdering(t *testing.T) {
	order := []Role{RoleEmployee, RoleManager, RoleAdministrator, RoleOwner}
	for i := 1; i < len(order); i++ {
		if Rank(order[i]) <= Rank(order[i-1]) {
			t.Fatalf("rank of %s should exceed rank of %s", order[i], order[i-1])
		}
	}
}

func TestUnknownRoleRanksZero(t *testing.T) {
	if Rank("superuser") != 0 {
		t.Fatalf("unknown role should rank 0, got %d", Rank("superuser"))
	}
	if Rank("") != 0 {
		t.Fatalf("empty role should rank 0, got %d", Rank(""))
	}
}

func TestAtLeastMonotonic(t *testing.T) {
	roles := Roles()
	for i, required := range roles {
		for j, caller := range roles {
			want := j >= i
			if got := AtLeast(caller, required); got != want {
				t.Fatalf("AtLeast(%s, %s) = %v, want %v", caller, required, got, want)
			}
		}
	}
}

func TestAtLeastUnknownCallerDenied(t *testing.T) {
	for _, required := range Roles() {
		if AtLeast("superuser", required) {
			t.Fatalf("unknown caller admitted for required role %s", required)
		}
	}
}

func TestAtLeastAny(t *testing.T) {
	tests := []struct {
		name       string
		caller     Role
		acceptable []Role
		want       bool
	}{
		{"matches one of several", RoleManager, []Role{RoleAdministrator, RoleManager}, true},
		{"outranks lowest acceptable", RoleOwner, []Role{RoleEmployee}, true},
		{"below all acceptable", RoleEmployee, []Role{RoleManager, RoleAdministrator}, false},
		{"empty set admits nobody", RoleOwner, nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := AtLeastAny(tc.caller, tc.acceptable...); got != tc.want {
				t.Fatalf("AtLeastAny(%s, %v) = %v, want %v", tc.caller, tc.acceptable, got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole(" Manager "); !ok || role != RoleManager {
		t.Fatalf("ParseRole should normalize case and whitespace, got %q %v", role, ok)
	}
	if _, ok := ParseRole("root"); ok {
		t.Fatal("ParseRole should reject unknown roles")
	}
}
