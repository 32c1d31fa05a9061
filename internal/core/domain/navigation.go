package domain

type NavItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Roles []Role `json:"-"`
}

var navItems = []NavItem{
	{ID: "dashboard", Label: "Library"},
	{ID: "upload", Label: "Upload", Roles: []Role{RoleAdmin, RoleUploader}},
	{ID: "logs", Label: "Access Logs", Roles: []Role{RoleAdmin}},
}

// NavigationFor returns the menu entries visible to role. Entries without
// roles are visible to everyone.
func NavigationFor(role Role) []NavItem {
	var items []NavItem
	for _, item := range navItems {
		if len(item.Roles) == 0 || containsRole(item.Roles, role) {
			items = append(items, item)
		}
	}
	return items
}

// UploadRoles may ingest content.
func UploadRoles() []Role {
	return []Role{RoleAdmin, RoleUploader}
}

// LogRoles may read the access log.
func LogRoles() []Role {
	return []Role{RoleAdmin}
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
