package sqlassets

import _ "embed"

//go:embed schema/accounts.sql
var AccountsSQL string

//go:embed schema/inspectors.sql
var InspectorsSQL string

//go:embed schema/inspections.sql
var InspectionsSQL string

//go:embed schema/property_managers.sql
var PropertyManagersSQL string
