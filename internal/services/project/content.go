package project

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Content is a tagged text-or-structured value stored as text. A value is
// Structured only when it is a JSON object or array; everything else,
// including strings that happen to look like numbers, stays Text. The tag is
// fixed when the value enters the system, so round-trip behavior is a
// property of the type rather than of a parse attempt.
type Content struct {
	raw        string
	structured bool
}

// Text wraps a plain string value.
func Text(s string) Content {
	return Content{raw: s}
}

// FromStored re-tags a value read back from storage.
func FromStored(s string) Content {
	t := strings.TrimSpace(s)
	if (strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")) && sonic.Valid([]byte(t)) {
		return Content{raw: s, structured: true}
	}
	return Content{raw: s}
}

// Stored returns the textual form written to storage.
func (c Content) Stored() string {
	return c.raw
}

func (c Content) Structured() bool {
	return c.structured
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.structured {
		return []byte(c.raw), nil
	}
	return sonic.Marshal(c.raw)
}

func (c *Content) UnmarshalJSON(b []byte) error {
	t := strings.TrimSpace(string(b))
	switch {
	case t == "" || t == "null":
		*c = Content{}
	case strings.HasPrefix(t, `"`):
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Content{raw: s}
	case strings.HasPrefix(t, "{") || strings.HasPrefix(t, "["):
		*c = Content{raw: t, structured: true}
	default:
		// numbers and booleans are kept as their literal text
		*c = Content{raw: t}
	}
	return nil
}

func (c Content) Value() (driver.Value, error) {
	return c.raw, nil
}

func (c *Content) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*c = FromStored(v)
	case []byte:
		*c = FromStored(string(v))
	case nil:
		*c = Content{}
	default:
		return fmt.Errorf("cannot scan %T into Content", src)
	}
	return nil
}
