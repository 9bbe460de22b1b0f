package store

import (
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/JonMunkholm/attendance/internal/core"
)

// dialect builds statements for one SQL flavor.
type dialect struct {
	flavor sqlbuilder.Flavor

	// date converts an attendance date to the driver's column value.
	date func(time.Time) any
}

var (
	postgresDialect = dialect{
		flavor: sqlbuilder.PostgreSQL,
		date:   func(t time.Time) any { return t },
	}
	sqliteDialect = dialect{
		flavor: sqlbuilder.SQLite,
		date:   func(t time.Time) any { return t.Format(time.DateOnly) },
	}
)

func (d dialect) selectParentByPhone(phone string) (string, []any) {
	sb := d.flavor.NewSelectBuilder()
	sb.Select("id").From("parents").Where(sb.Equal("phone_number", phone))
	return sb.Build()
}

func (d dialect) insertParent(p core.ParentFields) (string, []any) {
	ib := d.flavor.NewInsertBuilder()
	ib.InsertInto("parents").
		Cols("full_name", "email", "gender", "role_in_church", "department_in_church",
			"phone_number", "secondary_phone_number", "address").
		Values(p.FullName, p.Email, p.Gender, p.RoleInChurch, p.DepartmentInChurch,
			p.PhoneNumber, p.SecondaryPhoneNumber, p.Address)
	query, args := ib.Build()
	return query + " ON CONFLICT DO NOTHING RETURNING id", args
}

func (d dialect) selectChild(parentID int64, nameKey string, age int) (string, []any) {
	sb := d.flavor.NewSelectBuilder()
	sb.Select("id").From("children").Where(
		sb.Equal("parent_id", parentID),
		sb.Equal("name_key", nameKey),
		sb.Equal("age", age),
	)
	return sb.Build()
}

func (d dialect) insertChild(parentID int64, nameKey string, c core.ChildFields) (string, []any) {
	var specialNeeds any
	if c.SpecialNeeds != nil {
		specialNeeds = *c.SpecialNeeds
	}
	ib := d.flavor.NewInsertBuilder()
	ib.InsertInto("children").
		Cols("parent_id", "full_name", "name_key", "age", "gender", "special_needs", "relationship_to_parent").
		Values(parentID, c.FullName, nameKey, c.Age, c.Gender, specialNeeds, c.RelationshipToParent)
	query, args := ib.Build()
	return query + " ON CONFLICT DO NOTHING RETURNING id", args
}

func (d dialect) insertAttendance(childID int64, service string, date time.Time) (string, []any) {
	ib := d.flavor.NewInsertBuilder()
	ib.InsertInto("attendance").
		Cols("child_id", "service_name", "attendance_date", "was_present").
		Values(childID, service, d.date(date), true)
	query, args := ib.Build()
	return query + " ON CONFLICT (child_id, service_name, attendance_date) DO NOTHING", args
}

func (d dialect) count(table string) (string, []any) {
	sb := d.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From(table)
	return sb.Build()
}
