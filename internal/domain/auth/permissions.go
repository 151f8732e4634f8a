package auth

const (
	PermUsersView     = "users.view"
	PermUsersCreate   = "users.create"
	PermUsersEdit     = "users.edit"
	PermUsersDelete   = "users.delete"
	PermContactsView  = "contacts.view"
	PermContactsAdd   = "contacts.create"
	PermContactsEdit  = "contacts.edit"
	PermContactsDel   = "contacts.delete"
	PermContactsExp   = "contacts.export"
	PermListsManage   = "lists.manage"
	PermTagsManage    = "tags.manage"
	PermCampaignsView = "campaigns.view"
	PermCampaignsNew  = "campaigns.create"
	PermCampaignsSend = "campaigns.send"
	PermCampaignsDel  = "campaigns.delete"
	PermApptView      = "appointments.view"
	PermApptCreate    = "appointments.create"
	PermApptEdit      = "appointments.edit"
	PermApptCancel    = "appointments.cancel"
	PermPromosView    = "promotions.view"
	PermPromosManage  = "promotions.manage"
	PermBillingView   = "billing.view"
	PermBillingManage = "billing.manage"
	PermSettingsView  = "settings.view"
	PermSettingsEdit  = "settings.edit"
	PermSettingsPerms = "settings.permissions"
	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
	PermAuditView     = "audit.view"
)

// Definition describes one permission key for both request gating and the
// admin UI matrix. MinRole is the lowest role granted the key by default;
// the default matrix, the catalog endpoint, and the seed all derive from
// this single table so the copies cannot drift apart.
type Definition struct {
	Key         string `json:"key"`
	Category    string `json:"category"`
	Label       string `json:"label"`
	Description string `json:"description"`
	MinRole     Role   `json:"minRole"`
}

var catalog = []Definition{
	{PermUsersView, "users", "View users", "See the tenant's user accounts and their roles.", RoleManager},
	{PermUsersCreate, "users", "Invite users", "Create user accounts, subject to the plan's user limit.", RoleAdministrator},
	{PermUsersEdit, "users", "Edit users", "Change user names, roles and status.", RoleAdministrator},
	{PermUsersDelete, "users", "Remove users", "Deactivate or delete user accounts.", RoleAdministrator},
	{PermContactsView, "contacts", "View contacts", "Browse the contact database.", RoleEmployee},
	{PermContactsAdd, "contacts", "Add contacts", "Create contacts, subject to the plan's contact limit.", RoleEmployee},
	{PermContactsEdit, "contacts", "Edit contacts", "Update contact details and subscriptions.", RoleManager},
	{PermContactsDel, "contacts", "Delete contacts", "Remove contacts permanently.", RoleAdministrator},
	{PermContactsExp, "contacts", "Export contacts", "Download contact data.", RoleManager},
	{PermListsManage, "contacts", "Manage lists", "Create, rename and delete contact lists and their members.", RoleManager},
	{PermTagsManage, "contacts", "Manage tags", "Create tags and assign them to contacts.", RoleManager},
	{PermCampaignsView, "campaigns", "View campaigns", "See newsletters and campaigns with their statistics.", RoleEmployee},
	{PermCampaignsNew, "campaigns", "Create campaigns", "Draft newsletters and campaigns.", RoleManager},
	{PermCampaignsSend, "campaigns", "Send campaigns", "Send or schedule a campaign, subject to the monthly email quota.", RoleManager},
	{PermCampaignsDel, "campaigns", "Delete campaigns", "Delete draft or sent campaigns.", RoleAdministrator},
	{PermApptView, "appointments", "View appointments", "See the appointment calendar.", RoleEmployee},
	{PermApptCreate, "appointments", "Book appointments", "Create appointments for customers.", RoleEmployee},
	{PermApptEdit, "appointments", "Edit appointments", "Move or update existing appointments.", RoleManager},
	{PermApptCancel, "appointments", "Cancel appointments", "Cancel booked appointments.", RoleManager},
	{PermPromosView, "promotions", "View promotions", "See promotion codes and their validity.", RoleEmployee},
	{PermPromosManage, "promotions", "Manage promotions", "Create, edit and deactivate promotion codes.", RoleManager},
	{PermBillingView, "billing", "View billing", "See the subscription plan and usage against limits.", RoleAdministrator},
	{PermBillingManage, "billing", "Manage billing", "Change the subscription plan.", RoleOwner},
	{PermSettingsView, "settings", "View settings", "See tenant settings including the permission matrix.", RoleManager},
	{PermSettingsEdit, "settings", "Edit settings", "Change tenant settings.", RoleAdministrator},
	{PermSettingsPerms, "settings", "Edit permissions", "Customize role permissions for this tenant.", RoleOwner},
	{PermReportsView, "reports", "View reports", "See usage and campaign reports.", RoleManager},
	{PermReportsExport, "reports", "Export reports", "Download report PDFs.", RoleAdministrator},
	{PermAuditView, "audit", "View audit log", "Inspect the tenant's audit trail.", RoleAdministrator},
}

// defaultMatrix is built once from the catalog: role -> key -> granted.
var defaultMatrix = buildDefaultMatrix()

func buildDefaultMatrix() map[Role]map[string]bool {
	matrix := make(map[Role]map[string]bool, len(roleRanks))
	for _, role := range Roles() {
		grants := make(map[string]bool, len(catalog))
		for _, def := range catalog {
			grants[def.Key] = Rank(role) >= Rank(def.MinRole)
		}
		matrix[role] = grants
	}
	return matrix
}

// Catalog returns the permission definitions in declaration order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// PermissionKeys returns every known permission key.
func PermissionKeys() []string {
	keys := make([]string, 0, len(catalog))
	for _, def := range catalog {
		keys = append(keys, def.Key)
	}
	return keys
}

// KnownPermission reports whether key exists in the catalog.
func KnownPermission(key string) bool {
	for _, def := range catalog {
		if def.Key == key {
			return true
		}
	}
	return false
}

// DefaultGrant returns the out-of-the-box value for (role, key). Unknown
// roles and unknown keys are not granted.
func DefaultGrant(role Role, key string) bool {
	return defaultMatrix[role][key]
}

// DefaultGrants returns a mutable copy of the default permission set for a
// role. Unrecognized roles get an empty map, which denies everything.
func DefaultGrants(role Role) map[string]bool {
	source, ok := defaultMatrix[role]
	if !ok {
		return map[string]bool{}
	}
	grants := make(map[string]bool, len(source))
	for key, granted := range source {
		grants[key] = granted
	}
	return grants
}
