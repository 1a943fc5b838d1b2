package schema

// UserSocialAccountTable represents the 'users.socialaccount' table
type UserSocialAccountTable struct {
	Table     string
	ID        string
	AccountID string
	Provider  string
	SubjectID string
	CreatedAt string
}

// UserSocialAccount is the schema definition for users.socialaccount
var UserSocialAccount = UserSocialAccountTable{
	Table:     "users.socialaccount",
	ID:        "id",
	AccountID: "accountid",
	Provider:  "provider",
	SubjectID: "subjectid",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserSocialAccountTable) Columns() []string {
	return []string{t.ID, t.AccountID, t.Provider, t.SubjectID, t.CreatedAt}
}
