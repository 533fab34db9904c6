package layout

import (
	"encoding/json"
	"fmt"
)

// Object is one declarative UI element of the panel's line-oriented JSONL
// protocol. One object is sent per transport message; field names are the
// device firmware's contract and must not be renamed.
type Object struct {
	Page         int               `json:"page"`
	ID           int               `json:"id"`
	Obj          string            `json:"obj"`
	X            *int              `json:"x,omitempty"`
	Y            *int              `json:"y,omitempty"`
	W            *int              `json:"w,omitempty"`
	H            *int              `json:"h,omitempty"`
	Prev         *int              `json:"prev,omitempty"`
	Next         *int              `json:"next,omitempty"`
	Text         *string           `json:"text,omitempty"`
	Template     string            `json:"template,omitempty"`
	TextFont     int               `json:"text_font,omitempty"`
	TextColor    string            `json:"text_color,omitempty"`
	Align        string            `json:"align,omitempty"`
	BgColor      string            `json:"bg_color,omitempty"`
	BgOpa        *int              `json:"bg_opa,omitempty"`
	BgGradDir    string            `json:"bg_grad_dir,omitempty"`
	Radius       *int              `json:"radius,omitempty"`
	BorderWidth  *int              `json:"border_width,omitempty"`
	BorderSide   *int              `json:"border_side,omitempty"`
	OutlineWidth *int              `json:"outline_width,omitempty"`
	ShadowWidth  *int              `json:"shadow_width,omitempty"`
	Toggle       *bool             `json:"toggle,omitempty"`
	GroupID      int               `json:"groupid,omitempty"`
	Click        *bool             `json:"click,omitempty"`
	Options      []string          `json:"options,omitempty"`
	OneCheck     *int              `json:"one_check,omitempty"`
	Val          *int              `json:"val,omitempty"`
	Action       map[string]string `json:"action,omitempty"`
}

const (
	objPage      = "page"
	objContainer = "obj"
	objLabel     = "label"
	objButton    = "btn"
	objMatrix    = "btnmatrix"
)

// Ref is the stable object identifier used on the event channel and as a
// render-cache key, e.g. "p2b32" for button 32 on page 2.
func (o Object) Ref() string {
	switch o.Obj {
	case objPage:
		return fmt.Sprintf("p%d", o.Page)
	case objButton:
		return fmt.Sprintf("p%db%d", o.Page, o.ID)
	case objLabel:
		return fmt.Sprintf("p%dl%d", o.Page, o.ID)
	case objMatrix:
		return fmt.Sprintf("p%dm%d", o.Page, o.ID)
	default:
		return fmt.Sprintf("p%do%d", o.Page, o.ID)
	}
}

// JSONL renders the object as a single protocol line.
func (o Object) JSONL() (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func iptr(v int) *int       { return &v }
func bptr(v bool) *bool     { return &v }
func sptr(v string) *string { return &v }
