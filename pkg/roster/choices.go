package roster

import "github.com/roster/roster/pkg/stores"

// Form choices. The store accepts any text; these only drive defaults and
// help output.
var (
	Programs = []string{"BS CoE", "BS ECE", "BS EE"}
	Genders  = []string{"Male", "Female"}
	Statuses = []string{"Enrolled", "Not Enrolled"}
)

// DefaultRecord returns a record with the first choice of every selectable
// field preselected.
func DefaultRecord() stores.Record {
	return stores.Record{
		Program: Programs[0],
		Gender:  Genders[0],
		Status:  Statuses[0],
	}
}
