package upnp

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"
)

type arg struct {
	name  string
	value string
}

// Args is an ordered list of action input arguments. Argument order is fixed
// per action, so it is preserved exactly as built.
type Args []arg

// NewArgs starts an empty argument list.
func NewArgs() Args {
	return nil
}

// String appends a text argument.
func (a Args) String(name, value string) Args {
	// full slice expression so shared prefixes never alias
	return append(a[:len(a):len(a)], arg{name: name, value: value})
}

// Uint appends an unsigned integer argument.
func (a Args) Uint(name string, v uint64) Args {
	return a.String(name, strconv.FormatUint(v, 10))
}

// Int appends a signed integer argument.
func (a Args) Int(name string, v int64) Args {
	return a.String(name, strconv.FormatInt(v, 10))
}

// Bool appends a 0/1 argument.
func (a Args) Bool(name string, v bool) Args {
	return a.String(name, FormatBool(v))
}

// Duration appends an HH:MM:SS argument.
func (a Args) Duration(name string, d time.Duration) Args {
	return a.String(name, FormatDuration(d))
}

// Delta appends a signed HH:MM:SS argument.
func (a Args) Delta(name string, d time.Duration) Args {
	return a.String(name, FormatDelta(d))
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Get returns the value of the first argument called name.
func (a Args) Get(name string) (string, bool) {
	for _, x := range a {
		if x.name == name {
			return x.value, true
		}
	}
	return "", false
}

// Encode renders the arguments as <Name>value</Name> pairs with no separators.
// Values are XML-escaped; names are protocol literals and written as is.
func (a Args) Encode() []byte {
	var buf bytes.Buffer
	for _, x := range a {
		buf.WriteByte('<')
		buf.WriteString(x.name)
		buf.WriteByte('>')
		// bytes.Buffer writes never fail
		_ = xml.EscapeText(&buf, []byte(x.value))
		buf.WriteString("</")
		buf.WriteString(x.name)
		buf.WriteByte('>')
	}
	return buf.Bytes()
}
