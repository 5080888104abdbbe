// Package loader reads and writes instruction trace files.
//
// A trace file is JSON:
//
//	{"instructions": [
//	  {"class": "int", "src": [1, 2], "dst": [3]},
//	  {"class": "branch", "src": [3]}
//	]}
//
// Class names are those accepted by insts.ParseClass.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/tomasim/insts"
)

// DefaultNumRegisters is the register id bound used when none is given.
const DefaultNumRegisters = 64

// ErrInvalidTrace is returned when a trace file is well-formed JSON but
// describes an instruction the timing model cannot accept.
var ErrInvalidTrace = errors.New("invalid trace")

// Record is the on-disk form of one instruction.
type Record struct {
	Class string `json:"class"`
	Src   []int  `json:"src,omitempty"`
	Dst   []int  `json:"dst,omitempty"`
}

// File is the on-disk form of a trace.
type File struct {
	Instructions []Record `json:"instructions"`
}

// Option configures parsing.
type Option func(*options)

type options struct {
	numRegisters int
}

// WithNumRegisters sets the exclusive upper bound for register ids.
func WithNumRegisters(n int) Option {
	return func(o *options) {
		o.numRegisters = n
	}
}

// Load reads a trace file.
func Load(path string, opts ...Option) (*insts.SliceTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	trace, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return trace, nil
}

// Parse reads a trace from r.
func Parse(r io.Reader, opts ...Option) (*insts.SliceTrace, error) {
	o := options{numRegisters: DefaultNumRegisters}
	for _, opt := range opts {
		opt(&o)
	}

	var file File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse trace: %w", err)
	}

	trace := insts.NewSliceTrace()
	for i, rec := range file.Instructions {
		inst, err := rec.decode(o.numRegisters)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		trace.Append(inst)
	}

	return trace, nil
}

func (rec Record) decode(numRegisters int) (*insts.Instruction, error) {
	class, err := insts.ParseClass(rec.Class)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrace, err)
	}

	if len(rec.Src) > insts.MaxSrc {
		return nil, fmt.Errorf("%w: %d sources, at most %d",
			ErrInvalidTrace, len(rec.Src), insts.MaxSrc)
	}
	if len(rec.Dst) > insts.MaxDst {
		return nil, fmt.Errorf("%w: %d destinations, at most %d",
			ErrInvalidTrace, len(rec.Dst), insts.MaxDst)
	}

	src, err := registers(rec.Src, numRegisters)
	if err != nil {
		return nil, err
	}
	dst, err := registers(rec.Dst, numRegisters)
	if err != nil {
		return nil, err
	}

	return insts.New(class, src, dst), nil
}

func registers(ids []int, numRegisters int) ([]insts.Reg, error) {
	regs := make([]insts.Reg, len(ids))
	for i, id := range ids {
		if id < 0 || id >= numRegisters {
			return nil, fmt.Errorf("%w: register %d out of range [0, %d)",
				ErrInvalidTrace, id, numRegisters)
		}
		regs[i] = insts.Reg(id)
	}
	return regs, nil
}

// Encode converts a trace to its on-disk form.
func Encode(trace insts.Trace) File {
	file := File{Instructions: make([]Record, 0, trace.Len())}

	for i := 0; i < trace.Len(); i++ {
		inst := trace.Get(i)
		if inst == nil {
			file.Instructions = append(file.Instructions,
				Record{Class: insts.ClassNop.String()})
			continue
		}

		rec := Record{Class: inst.Class.String()}
		for _, r := range inst.Src {
			if r != insts.RegNone {
				rec.Src = append(rec.Src, int(r))
			}
		}
		for _, r := range inst.Dst {
			if r != insts.RegNone {
				rec.Dst = append(rec.Dst, int(r))
			}
		}
		file.Instructions = append(file.Instructions, rec)
	}

	return file
}

// Write writes trace to w as indented JSON.
func Write(w io.Writer, trace insts.Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(trace)); err != nil {
		return fmt.Errorf("failed to serialize trace: %w", err)
	}
	return nil
}

// Save writes trace to a file.
func Save(path string, trace insts.Trace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	if err := Write(f, trace); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}

	return nil
}
