package rvm

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// DumpRegisters renders the PC and all general purpose registers as a table.
func (vm *VM) DumpRegisters(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Reg", "Type", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	pc := vm.regs.PC()
	table.Append([]string{"pc", KindInt.String(), fmt.Sprintf("%d (0x%x)", pc, pc)})
	for i, v := range vm.regs.regs {
		var val string
		switch v.Kind {
		case KindInt:
			val = fmt.Sprintf("%d (0x%x)", v.Int, v.Int)
		case KindFloat:
			val = strconv.FormatFloat(v.Float, 'g', -1, 64)
		case KindString:
			val = strconv.Quote(v.Str)
		}
		table.Append([]string{"r" + strconv.Itoa(i), v.Kind.String(), val})
	}
	table.Render()
}
