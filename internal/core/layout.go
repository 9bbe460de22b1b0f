package core

import (
	"fmt"
	"strings"
)

// Layout names the source column labels for each field. Labels are matched
// case-insensitively after CleanCell. An empty label means the source has no
// such column and the field takes its default.
type Layout struct {
	ParentID             string        `yaml:"parent_id"`
	ParentName           string        `yaml:"parent_name"`
	Email                string        `yaml:"email"`
	Gender               string        `yaml:"gender"`
	RoleInChurch         string        `yaml:"role_in_church"`
	DepartmentInChurch   string        `yaml:"department_in_church"`
	PhoneNumber          string        `yaml:"phone_number"`
	SecondaryPhoneNumber string        `yaml:"secondary_phone_number"`
	Address              string        `yaml:"address"`
	Service              string        `yaml:"service"`
	Timestamp            string        `yaml:"timestamp"`
	Children             []ChildLayout `yaml:"children"`
}

// ChildLayout names the labels of one child column group.
type ChildLayout struct {
	Name         string `yaml:"name"`
	Age          string `yaml:"age"`
	Gender       string `yaml:"gender"`
	SpecialNeeds string `yaml:"special_needs"`
	Relationship string `yaml:"relationship"`
	CheckIn      string `yaml:"check_in"`
	CheckOut     string `yaml:"check_out"`
}

// BatchLayout returns the labels of the historical multi-sheet workbook.
// The service name is the sheet name, so there is no service column.
func BatchLayout() Layout {
	l := Layout{
		ParentID:             "ID",
		ParentName:           "Full Name",
		Email:                "Email",
		Gender:               "Gender",
		RoleInChurch:         "Role In Church",
		DepartmentInChurch:   "Department In Church",
		PhoneNumber:          "Phone Number",
		SecondaryPhoneNumber: "Secondary Phone Number",
		Address:              "Address",
		Timestamp:            "Timestamp",
	}
	for n := 1; n <= MaxChildSlots; n++ {
		l.Children = append(l.Children, ChildLayout{
			Name:         fmt.Sprintf("Full Name of Child %d", n),
			Age:          fmt.Sprintf("Age of Child %d", n),
			Gender:       fmt.Sprintf("Gender of Child %d", n),
			SpecialNeeds: fmt.Sprintf("Special Needs of Child %d", n),
			Relationship: fmt.Sprintf("Relationship With Child %d", n),
			CheckIn:      fmt.Sprintf("Child %d (check-in)", n),
			CheckOut:     fmt.Sprintf("Child %d (check-out)", n),
		})
	}
	return l
}

// FormLayout returns the labels of the weekly sign-in form export.
func FormLayout() Layout {
	l := Layout{
		ParentName:  "Your Name",
		Gender:      "Your Gender",
		PhoneNumber: "Your Phone",
		Service:     "Which Service",
		Timestamp:   "Timestamp",
	}
	for n := 1; n <= MaxChildSlots; n++ {
		l.Children = append(l.Children, ChildLayout{
			Name:     fmt.Sprintf("Child %d Name", n),
			Age:      fmt.Sprintf("Child %d Age", n),
			Gender:   fmt.Sprintf("Child %d Gender", n),
			CheckIn:  fmt.Sprintf("Child %d (check-in)", n),
			CheckOut: fmt.Sprintf("Child %d (check-out)", n),
		})
	}
	return l
}

// DefaultLayout returns the built-in layout for mode.
func DefaultLayout(mode Mode) Layout {
	if mode == ModeBatch {
		return BatchLayout()
	}
	return FormLayout()
}

// Validate checks that the layout can identify a parent in mode.
func (l Layout) Validate(mode Mode) error {
	var errs []string
	if l.ParentName == "" {
		errs = append(errs, "parent_name label is required")
	}
	if mode == ModeBatch && l.ParentID == "" {
		errs = append(errs, "parent_id label is required in batch mode")
	}
	if mode == ModeIncremental && l.PhoneNumber == "" {
		errs = append(errs, "phone_number label is required in incremental mode")
	}
	if len(l.Children) == 0 || len(l.Children) > MaxChildSlots {
		errs = append(errs, fmt.Sprintf("children must list 1-%d slots, got %d", MaxChildSlots, len(l.Children)))
	}
	for i, c := range l.Children {
		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("children[%d].name label is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(errs, "; "))
	}
	return nil
}

// LabelKey is the lookup form of a column label.
func LabelKey(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(CleanCell(label)), " "))
}
