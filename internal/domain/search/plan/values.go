package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceIDs parses the values of a res or lres clause. Values that are not
// integers are returned in rejected.
func ResourceIDs(values []string) (ids []int64, rejected []string) {
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			rejected = append(rejected, v)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rejected
}

// IgnoredResourceIDs warns that a clause ran on its numeric values only.
func IgnoredResourceIDs(field string, rejected []string) Warning {
	return Warning{
		Kind:    WarnIncorrectValue,
		Message: fmt.Sprintf("ignored non-numeric resource ids on %s: %s", fieldLabel(field), strings.Join(rejected, ", ")),
	}
}
