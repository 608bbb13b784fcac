package models

// All lists every table, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&BusStop{},
		&Route{},
		&RouteStop{},
		&Bus{},
		&DriverSession{},
		&LocationUpdate{},
		&Notification{},
		&Report{},
		&ChatLog{},
	}
}
