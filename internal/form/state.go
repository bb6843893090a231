package form

import (
	"fmt"

	"github.com/woozymasta/ecoleta/internal/api"
	"github.com/woozymasta/ecoleta/internal/geo"
)

// State is the lifecycle stage of a form.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateEditing
	StateSubmitting
	StateDone
)

var stateNames = [...]string{"idle", "loading", "editing", "submitting", "done"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Contact field names accepted by SetField.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldWhatsapp = "whatsapp"
)

// Data holds the contact fields. It is a value type: With returns a modified copy.
type Data struct {
	Name     string `json:"name"`
	Whatsapp string `json:"whatsapp"`
	Email    string `json:"email"`
}

// With returns a copy of d with field set to value.
func (d Data) With(field, value string) (Data, error) {
	switch field {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldWhatsapp:
		d.Whatsapp = value
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return d, nil
}

// View is a read-only snapshot of a form.
type View struct {
	Errors           map[string]string `json:"errors"`
	ID               string            `json:"id"`
	SelectedUF       string            `json:"selected_uf"`
	SelectedCity     string            `json:"selected_city"`
	Data             Data              `json:"data"`
	Items            []api.Item        `json:"items"`
	SelectedItems    []int             `json:"selected_items"`
	UFs              []string          `json:"ufs"`
	Cities           []string          `json:"cities"`
	InitialPosition  geo.Position      `json:"initial_position"`
	SelectedPosition geo.Position      `json:"selected_position"`
	State            State             `json:"state"`
}

// IsSelected reports whether item id is in the selection.
func (v View) IsSelected(id int) bool {
	for _, s := range v.SelectedItems {
		if s == id {
			return true
		}
	}
	return false
}

// InputError wraps malformed user input such as non-finite coordinates.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }
