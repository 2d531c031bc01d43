// Package protocol defines the types necessary for unmarshalling a
// protocol-specification XML file, and carries the specifications of
// the interfaces that this module speaks.
package protocol

import (
	"cmp"
	"embed"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strconv"
	"sync"
)

type Protocol struct {
	Name      string `xml:"name,attr"`
	Copyright string `xml:"copyright"`

	Interfaces []Interface `xml:"interface"`
}

type Interface struct {
	Name        string      `xml:"name,attr"`
	Version     int         `xml:"version,attr"`
	Description Description `xml:"description"`

	Requests []Op   `xml:"request"`
	Events   []Op   `xml:"event"`
	Enums    []Enum `xml:"enum"`
}

type Description struct {
	Summary string `xml:"summary,attr"`
	Full    string `xml:",chardata"`
}

type Op struct {
	Name        string      `xml:"name,attr"`
	Type        string      `xml:"type,attr"`
	Since       int         `xml:"since,attr"`
	Description Description `xml:"description"`

	Args []Arg `xml:"arg"`
}

type Arg struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`

	Type      string `xml:"type,attr"`
	Interface string `xml:"interface,attr"`
	AllowNull bool   `xml:"allow-null,attr"`
}

type Enum struct {
	Name        string      `xml:"name,attr"`
	Bitfield    bool        `xml:"bitfield,attr"`
	Description Description `xml:"description"`

	Entries []Entry `xml:"entry"`
}

type Entry struct {
	Name    string `xml:"name,attr"`
	Summary string `xml:"summary,attr"`
	Value   string `xml:"value,attr"`
}

func (e Entry) Int() (int, error) {
	v, err := strconv.ParseInt(e.Value, 0, 0)
	return int(v), err
}

// Load decodes a protocol specification.
func Load(r io.Reader) (proto Protocol, err error) {
	d := xml.NewDecoder(r)
	err = d.Decode(&proto)
	return proto, err
}

// Request returns the request with the given opcode.
func (i *Interface) Request(op uint16) (Op, bool) {
	if int(op) >= len(i.Requests) {
		return Op{}, false
	}
	return i.Requests[op], true
}

// Event returns the event with the given opcode.
func (i *Interface) Event(op uint16) (Op, bool) {
	if int(op) >= len(i.Events) {
		return Op{}, false
	}
	return i.Events[op], true
}

// RequestOp returns the opcode of the named request.
func (i *Interface) RequestOp(name string) (uint16, bool) {
	return findOp(i.Requests, name)
}

// EventOp returns the opcode of the named event.
func (i *Interface) EventOp(name string) (uint16, bool) {
	return findOp(i.Events, name)
}

func findOp(ops []Op, name string) (uint16, bool) {
	for op, v := range ops {
		if v.Name == name {
			return uint16(op), true
		}
	}
	return 0, false
}

//go:embed xml/*.xml
var files embed.FS

var builtin = sync.OnceValues(func() (map[string]*Interface, error) {
	interfaces := make(map[string]*Interface)
	err := fs.WalkDir(files, "xml", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		file, err := files.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		proto, err := Load(file)
		if err != nil {
			return fmt.Errorf("load %v: %w", path, err)
		}
		for i := range proto.Interfaces {
			inter := &proto.Interfaces[i]
			interfaces[inter.Name] = inter
		}
		return nil
	})
	return interfaces, err
})

// Lookup returns the builtin specification of the named interface.
func Lookup(name string) (*Interface, bool) {
	interfaces, err := builtin()
	if err != nil {
		panic(fmt.Errorf("embedded protocol files: %w", err))
	}
	inter, ok := interfaces[name]
	return inter, ok
}

// MustLookup is like Lookup but panics if the interface is unknown.
func MustLookup(name string) *Interface {
	inter, ok := Lookup(name)
	if !ok {
		panic(fmt.Errorf("unknown interface %q", name))
	}
	return inter
}

// Interfaces returns every builtin interface, sorted by name.
func Interfaces() []*Interface {
	interfaces, err := builtin()
	if err != nil {
		panic(fmt.Errorf("embedded protocol files: %w", err))
	}

	list := make([]*Interface, 0, len(interfaces))
	for _, inter := range interfaces {
		list = append(list, inter)
	}
	slices.SortFunc(list, func(i1, i2 *Interface) int { return cmp.Compare(i1.Name, i2.Name) })
	return list
}
