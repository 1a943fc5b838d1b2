package schema

// UserSessionTable represents the 'users.session' table.
// It is LIST-partitioned on DeviceClass.
type UserSessionTable struct {
	Table       string
	ID          string
	AccountID   string
	UserAgent   string
	DeviceClass string
	CreatedAt   string
}

// UserSession is the schema definition for users.session
var UserSession = UserSessionTable{
	Table:       "users.session",
	ID:          "id",
	AccountID:   "accountid",
	UserAgent:   "useragent",
	DeviceClass: "deviceclass",
	CreatedAt:   "createdat",
}

// Columns returns all standard column names
func (t UserSessionTable) Columns() []string {
	return []string{t.ID, t.AccountID, t.UserAgent, t.DeviceClass, t.CreatedAt}
}

// Partition returns the child table holding rows of one device class.
func (t UserSessionTable) Partition(deviceClass string) string {
	return t.Table + "_" + deviceClass
}
