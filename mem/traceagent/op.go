package traceagent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OpKind is the kind of a trace operation.
type OpKind int

// Kinds of trace operations.
const (
	OpRead OpKind = iota
	OpWrite
	OpIdle
)

func (k OpKind) String() string {
	switch k {
	case OpRead:
		return "R"
	case OpWrite:
		return "W"
	case OpIdle:
		return "T"
	default:
		return "?"
	}
}

// Op is one line of a trace.
type Op struct {
	Kind OpKind
	Addr uint64
	Size uint64

	// Ticks is the number of idle memory cycles of an OpIdle.
	Ticks uint64

	// Line is the 1-based line the op was read from.
	Line int
}

// Parse reads a trace. Each non-empty line is `R <addr> <size>`,
// `W <addr> <size>` or `T <ticks>`. Text after `#` is ignored. Numbers are
// decimal or 0x-prefixed hex.
func Parse(r io.Reader) ([]Op, error) {
	ops := []Op{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		op, err := parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		op.Line = lineNum
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	return ops, nil
}

func parseFields(fields []string) (Op, error) {
	switch strings.ToUpper(fields[0]) {
	case "R":
		return parseAccess(OpRead, fields)
	case "W":
		return parseAccess(OpWrite, fields)
	case "T":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("expected `T <ticks>`, got %d fields",
				len(fields))
		}

		ticks, err := parseNumber(fields[1])
		if err != nil {
			return Op{}, fmt.Errorf("tick count: %w", err)
		}

		return Op{Kind: OpIdle, Ticks: ticks}, nil
	default:
		return Op{}, fmt.Errorf("unknown operation %q", fields[0])
	}
}

func parseAccess(kind OpKind, fields []string) (Op, error) {
	if len(fields) != 3 {
		return Op{}, fmt.Errorf("expected `%s <addr> <size>`, got %d fields",
			kind, len(fields))
	}

	addr, err := parseNumber(fields[1])
	if err != nil {
		return Op{}, fmt.Errorf("address: %w", err)
	}

	size, err := parseNumber(fields[2])
	if err != nil {
		return Op{}, fmt.Errorf("size: %w", err)
	}

	if size == 0 {
		return Op{}, errors.New("size must be positive")
	}

	return Op{Kind: kind, Addr: addr, Size: size}, nil
}

func parseNumber(s string) (uint64, error) {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") {
		return strconv.ParseUint(lower[2:], 16, 64)
	}

	return strconv.ParseUint(s, 10, 64)
}
