package schema

// UserAccountRoleTable represents the 'users.accountrole' join table
type UserAccountRoleTable struct {
	Table     string
	AccountID string
	RoleID    string
	CreatedAt string
}

// UserAccountRole is the schema definition for users.accountrole
var UserAccountRole = UserAccountRoleTable{
	Table:     "users.accountrole",
	AccountID: "accountid",
	RoleID:    "roleid",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserAccountRoleTable) Columns() []string {
	return []string{t.AccountID, t.RoleID, t.CreatedAt}
}
