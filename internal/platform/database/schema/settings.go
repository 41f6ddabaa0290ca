package schema

// SettingsTable represents the 'settings' table (a singleton row)
type SettingsTable struct {
	Table         string
	ID            string
	SiteName      string
	Address       string
	Phone         string
	Email         string
	BusinessHours string
	CreatedAt     string
}

var Settings = SettingsTable{
	Table:         "settings",
	ID:            "id",
	SiteName:      "site_name",
	Address:       "address",
	Phone:         "phone",
	Email:         "email",
	BusinessHours: "business_hours",
	CreatedAt:     "created_at",
}

func (t SettingsTable) Columns() []string {
	return []string{t.ID, t.SiteName, t.Address, t.Phone, t.Email, t.BusinessHours, t.CreatedAt}
}
