package secs2

import (
	"fmt"
	"strconv"
	"strings"
)

// ToSML converts the item into its SML representation.
//
// List items are rendered over multiple lines, each nesting level indented by 2 spaces:
//
//	<L[2]
//	  <A[5] "hello">
//	  <U4[2] 1 2>
//	>
//
// Within an ASCII item, printable characters are enclosed in double quotes and non-printable
// characters are written as 0xNN tokens, e.g. <A[7] "abc" 0x0D 0x0A "de">. Binary values are
// written as 0xNN tokens and booleans as T or F.
//
// The empty item is rendered as an empty string.
func (item Item) ToSML() string {
	var sb strings.Builder
	item.writeSML(&sb, 0)

	return sb.String()
}

func (item Item) writeSML(sb *strings.Builder, level int) {
	if item.kind == EmptyKind {
		return
	}

	indentStr := strings.Repeat("  ", level)
	sb.WriteString(indentStr)
	sb.WriteByte('<')
	sb.WriteString(item.kind.Symbol())
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(item.Size()))
	sb.WriteByte(']')

	if item.Size() == 0 {
		sb.WriteByte('>')
		return
	}

	switch item.kind {
	case ListKind:
		sb.WriteByte('\n')
		for _, child := range item.list {
			child.writeSML(sb, level+1)
			sb.WriteByte('\n')
		}
		sb.WriteString(indentStr)
	case ASCIIKind:
		writeASCIISML(sb, item.text)
	case BinaryKind:
		for _, v := range item.bytes {
			fmt.Fprintf(sb, " 0x%02X", v)
		}
	case BooleanKind:
		for _, v := range item.bools {
			if v {
				sb.WriteString(" T")
			} else {
				sb.WriteString(" F")
			}
		}
	default:
		item.forEachNumber(func(s string) {
			sb.WriteByte(' ')
			sb.WriteString(s)
		})
	}

	sb.WriteByte('>')
}

func writeASCIISML(sb *strings.Builder, value string) {
	inPrintableRun := false

	for i := 0; i < len(value); i++ {
		ch := value[i]
		// 0x20: space, which is the first printable character, 0x7f: del
		isPrintable := ch >= 0x20 && ch < 0x7f

		if isPrintable && !inPrintableRun {
			sb.WriteString(` "`) // Start a printable run
			inPrintableRun = true
		} else if !isPrintable && inPrintableRun {
			sb.WriteByte('"') // End a printable run
			inPrintableRun = false
		}

		if isPrintable {
			if ch == '"' || ch == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(ch)
		} else {
			fmt.Fprintf(sb, " 0x%02X", ch)
		}
	}

	if inPrintableRun {
		sb.WriteByte('"') // Close the final printable run if needed
	}
}
