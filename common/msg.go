package common

import (
	"encoding/json"
	"fmt"
)

// Operation identifies a remote call.
type Operation int

const (
	Create Operation = iota
	Delete
	Read
	List
	UpdateSalary
	UpdateDepartment
	Shutdown
)

var Operation2Str = []string{
	"create",
	"delete",
	"read",
	"list",
	"update-salary",
	"update-dept",
	"shutdown",
}
var Str2Operation = map[string]Operation{
	"create":        Create,
	"delete":        Delete,
	"read":          Read,
	"list":          List,
	"update-salary": UpdateSalary,
	"update-dept":   UpdateDepartment,
	"shutdown":      Shutdown,
}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(Operation2Str) {
		return fmt.Sprintf("operation(%d)", int(o))
	}
	return Operation2Str[o]
}

func (o Operation) MarshalJSON() ([]byte, error) {
	if o < 0 || int(o) >= len(Operation2Str) {
		return nil, fmt.Errorf("unknown operation %d", int(o))
	}
	return json.Marshal(Operation2Str[o])
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	op, ok := Str2Operation[s]
	if !ok {
		return fmt.Errorf("unknown operation %q", s)
	}
	*o = op
	return nil
}
