// Package debugger provides an interactive single-step front end for the VM.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/xlab/treeprint"

	"github.com/colorfulnotion/regvm/log"
	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
)

var ErrHalted = errors.New("program halted")

type Debugger struct {
	vm          *rvm.VM
	out         io.Writer
	breakpoints map[uint64]bool
	halted      bool
	fault       error
}

func New(vm *rvm.VM, out io.Writer) *Debugger {
	return &Debugger{
		vm:          vm,
		out:         out,
		breakpoints: make(map[uint64]bool),
	}
}

// Halted reports whether the program stopped or faulted.
func (d *Debugger) Halted() bool { return d.halted }

// Fault is the error that stopped the program, if any.
func (d *Debugger) Fault() error { return d.fault }

type command struct {
	name  string
	args  string
	help  string
	run   func(d *Debugger, args []string) (bool, error)
	alias []string
}

var commands []command

func init() {
	commands = []command{
		{name: "step", args: "[n]", help: "execute n instructions (default 1)", run: (*Debugger).cmdStep, alias: []string{"s"}},
		{name: "continue", help: "run until halt, fault or breakpoint", run: (*Debugger).cmdContinue, alias: []string{"c"}},
		{name: "break", args: "<pc>", help: "set a breakpoint", run: (*Debugger).cmdBreak, alias: []string{"b"}},
		{name: "delete", args: "<pc>", help: "remove a breakpoint", run: (*Debugger).cmdDelete},
		{name: "breaks", help: "list breakpoints", run: (*Debugger).cmdBreaks},
		{name: "regs", help: "show registers", run: (*Debugger).cmdRegs, alias: []string{"r"}},
		{name: "mem", args: "<addr> [n]", help: "hex dump n bytes (default 16)", run: (*Debugger).cmdMem, alias: []string{"m"}},
		{name: "map", help: "show the address space", run: (*Debugger).cmdMap},
		{name: "disasm", args: "[pc] [n]", help: "disassemble n instructions (default 8)", run: (*Debugger).cmdDisasm, alias: []string{"d"}},
		{name: "info", help: "show machine counters", run: (*Debugger).cmdInfo, alias: []string{"i"}},
		{name: "help", help: "list commands", run: (*Debugger).cmdHelp, alias: []string{"h", "?"}},
		{name: "quit", help: "leave the debugger", run: func(*Debugger, []string) (bool, error) { return true, nil }, alias: []string{"q", "exit"}},
	}
}

func lookup(name string) *command {
	for i := range commands {
		c := &commands[i]
		if c.name == name {
			return c
		}
		for _, a := range c.alias {
			if a == name {
				return c
			}
		}
	}
	return nil
}

// Exec runs one command line. It returns true when the session should end.
func (d *Debugger) Exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	c := lookup(fields[0])
	if c == nil {
		return false, fmt.Errorf("unknown command %q, try help", fields[0])
	}
	log.Debug(log.DebuggerMonitoring, "exec", "cmd", c.name, "args", fields[1:])
	return c.run(d, fields[1:])
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

func optUint(args []string, i int, def uint64) (uint64, error) {
	if len(args) <= i {
		return def, nil
	}
	return parseUint(args[i])
}

// step executes one instruction and records a halt or fault.
func (d *Debugger) step() error {
	if d.halted {
		if d.fault != nil {
			return fmt.Errorf("%w: %v", ErrHalted, d.fault)
		}
		return ErrHalted
	}
	cont, err := d.vm.Step()
	if err != nil {
		d.halted = true
		d.fault = err
		fmt.Fprintf(d.out, "fault: %v (%s)\n", err, vmerrors.GetErrorCodeWithName(err))
		return err
	}
	if !cont {
		d.halted = true
		fmt.Fprintf(d.out, "halted after %s ticks\n", humanize.Comma(int64(d.vm.Ticks())))
	}
	return nil
}

func (d *Debugger) where() {
	pc := d.vm.Regs().PC()
	in, err := program.DecodeAt(d.vm.Image(), pc)
	if err != nil {
		fmt.Fprintf(d.out, "pc=%d <%v>\n", pc, err)
		return
	}
	fmt.Fprintf(d.out, "pc=%d %s\n", pc, in.Text)
}

func (d *Debugger) cmdStep(args []string) (bool, error) {
	n, err := optUint(args, 0, 1)
	if err != nil {
		return false, err
	}
	for i := uint64(0); i < n && !d.halted; i++ {
		if err := d.step(); err != nil {
			return false, err
		}
	}
	if !d.halted {
		d.where()
	}
	return false, nil
}

func (d *Debugger) cmdContinue([]string) (bool, error) {
	first := true
	for !d.halted {
		if !first && d.breakpoints[d.vm.Regs().PC()] {
			fmt.Fprintf(d.out, "breakpoint at %d\n", d.vm.Regs().PC())
			d.where()
			return false, nil
		}
		first = false
		if err := d.step(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (d *Debugger) cmdBreak(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: break <pc>")
	}
	pc, err := parseUint(args[0])
	if err != nil {
		return false, err
	}
	d.breakpoints[pc] = true
	fmt.Fprintf(d.out, "breakpoint set at %d\n", pc)
	return false, nil
}

func (d *Debugger) cmdDelete(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errors.New("usage: delete <pc>")
	}
	pc, err := parseUint(args[0])
	if err != nil {
		return false, err
	}
	if !d.breakpoints[pc] {
		return false, fmt.Errorf("no breakpoint at %d", pc)
	}
	delete(d.breakpoints, pc)
	return false, nil
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (d *Debugger) Breakpoints() []uint64 {
	out := make([]uint64, 0, len(d.breakpoints))
	for pc := range d.breakpoints {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Debugger) cmdBreaks([]string) (bool, error) {
	for _, pc := range d.Breakpoints() {
		fmt.Fprintf(d.out, "%d\n", pc)
	}
	return false, nil
}

func (d *Debugger) cmdRegs([]string) (bool, error) {
	d.vm.DumpRegisters(d.out)
	return false, nil
}

func (d *Debugger) cmdMem(args []string) (bool, error) {
	if len(args) < 1 {
		return false, errors.New("usage: mem <addr> [n]")
	}
	addr, err := parseUint(args[0])
	if err != nil {
		return false, err
	}
	n, err := optUint(args, 1, 16)
	if err != nil {
		return false, err
	}
	data, err := d.vm.ReadBytes(addr, n)
	if err != nil {
		return false, err
	}
	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		fmt.Fprintf(d.out, "%08x  % x\n", addr+uint64(off), data[off:end])
	}
	return false, nil
}

// MemoryMap renders the image and every heap segment as a tree.
func MemoryMap(vm *rvm.VM) treeprint.Tree {
	imageSize, heapSize := vm.ImageSize(), vm.HeapSize()
	tree := treeprint.NewWithRoot(fmt.Sprintf("address space %s", humanize.Bytes(imageSize+heapSize)))
	tree.AddNode(fmt.Sprintf("image [0, %d) %s read-only", imageSize, humanize.Bytes(imageSize)))
	start := vm.HeapStart()
	heap := tree.AddBranch(fmt.Sprintf("heap [%d, %d) %s", start, start+heapSize, humanize.Bytes(heapSize)))
	for i, seg := range vm.Heap().Segments() {
		heap.AddNode(fmt.Sprintf("segment %d [%d, %d) %s", i, seg.Start, seg.Start+seg.Size, humanize.Bytes(seg.Size)))
	}
	return tree
}

func (d *Debugger) cmdMap([]string) (bool, error) {
	fmt.Fprint(d.out, MemoryMap(d.vm).String())
	return false, nil
}

func (d *Debugger) cmdDisasm(args []string) (bool, error) {
	pc, err := optUint(args, 0, d.vm.Regs().PC())
	if err != nil {
		return false, err
	}
	n, err := optUint(args, 1, 8)
	if err != nil {
		return false, err
	}
	image := d.vm.Image()
	for i := uint64(0); i < n && pc < uint64(len(image)); i++ {
		in, err := program.DecodeAt(image, pc)
		if err != nil {
			return false, err
		}
		marker := "  "
		if pc == d.vm.Regs().PC() {
			marker = "=>"
		}
		if d.breakpoints[pc] {
			marker = "*" + marker[1:]
		}
		fmt.Fprintf(d.out, "%s %6d: %-14s %s\n", marker, in.Offset, in.Name, in.Text)
		pc += uint64(in.Length)
	}
	return false, nil
}

func (d *Debugger) cmdInfo([]string) (bool, error) {
	state := "running"
	switch {
	case d.fault != nil:
		state = "faulted: " + vmerrors.GetErrorName(d.fault)
	case d.halted:
		state = "halted"
	}
	fmt.Fprintf(d.out, "state:  %s\n", state)
	fmt.Fprintf(d.out, "pc:     %d\n", d.vm.Regs().PC())
	fmt.Fprintf(d.out, "ticks:  %s\n", humanize.Comma(int64(d.vm.Ticks())))
	fmt.Fprintf(d.out, "image:  %s\n", humanize.Bytes(d.vm.ImageSize()))
	fmt.Fprintf(d.out, "heap:   %s in %d segments from %d\n", humanize.Bytes(d.vm.HeapSize()), d.vm.Heap().Len(), d.vm.HeapStart())
	return false, nil
}

func (d *Debugger) cmdHelp([]string) (bool, error) {
	for _, c := range commands {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(d.out, "  %-18s %s\n", usage, c.help)
	}
	return false, nil
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Run reads commands from the terminal until quit or EOF.
func (d *Debugger) Run(historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "(regvm) ",
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	d.where()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := d.Exec(line)
		if err != nil {
			fmt.Fprintf(d.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}
