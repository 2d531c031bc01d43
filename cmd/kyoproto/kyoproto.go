// Command kyoproto prints the Wayland interfaces that kyo speaks, or
// those of a protocol XML file, with the opcodes of their messages.
// It is meant to be read alongside a WAYLAND_DEBUG trace.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"deedles.dev/kyo/internal/xslices"
	"deedles.dev/kyo/protocol"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

func loadXML(path string) ([]*protocol.Interface, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	proto, err := protocol.Load(file)
	if err != nil {
		return nil, err
	}

	interfaces := make([]*protocol.Interface, 0, len(proto.Interfaces))
	for i := range proto.Interfaces {
		interfaces = append(interfaces, &proto.Interfaces[i])
	}
	return interfaces, nil
}

func signature(op protocol.Op) string {
	args := make([]string, 0, len(op.Args))
	for _, arg := range op.Args {
		t := arg.Type
		if arg.Interface != "" {
			t += "<" + arg.Interface + ">"
		}
		if arg.AllowNull {
			t = "?" + t
		}
		args = append(args, arg.Name+" "+t)
	}
	return op.Name + "(" + strings.Join(args, ", ") + ")"
}

// truncate shortens line to at most width runes. A width of zero or
// less leaves the line alone.
func truncate(line string, width int) string {
	runes := []rune(line)
	if width <= 0 || len(runes) <= width {
		return line
	}
	return string(runes[:width-1]) + "…"
}

func printOps(w io.Writer, width int, kind string, ops []protocol.Op) {
	for i, op := range ops {
		var extra string
		if op.Since > 1 {
			extra = fmt.Sprintf(" since %v", op.Since)
		}
		if op.Type == "destructor" {
			extra += " destructor"
		}
		line := fmt.Sprintf("  %v %2d %v%v", kind, i, signature(op), extra)
		fmt.Fprintln(w, truncate(line, width))
	}
}

func printInterfaces(w io.Writer, width int, interfaces []*protocol.Interface) {
	for _, inter := range interfaces {
		fmt.Fprintf(w, "%v v%v\n", inter.Name, inter.Version)
		printOps(w, width, "->", inter.Requests)
		printOps(w, width, "<-", inter.Events)
	}
}

func main() {
	xmlfile := flag.String("xml", "", "protocol XML file (default: the builtin protocols)")
	prefix := flag.String("prefix", "", "only print interfaces whose names start with this")
	flag.Parse()

	interfaces := protocol.Interfaces()
	if *xmlfile != "" {
		var err error
		interfaces, err = loadXML(*xmlfile)
		if err != nil {
			log.Fatal("load XML", "file", *xmlfile, "err", err)
		}
	}

	interfaces = xslices.Filter(interfaces, func(inter *protocol.Interface) bool {
		return strings.HasPrefix(inter.Name, *prefix)
	})
	var width int
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		width, _, _ = term.GetSize(fd)
	}
	printInterfaces(os.Stdout, width, interfaces)
}
