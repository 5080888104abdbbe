package insts

import "fmt"

// Class is the operation class of an instruction. The timing model only
// needs the class to pick a reservation station pool and to decide whether
// the result goes over the common data bus.
type Class uint8

// Operation classes.
const (
	ClassNop        Class = iota // Trap, no-op, or anything unsupported
	ClassIntComp                 // Integer computation
	ClassFPComp                  // Floating-point computation
	ClassLoad                    // Load (modeled as an integer-unit operation)
	ClassStore                   // Store (modeled as an integer-unit operation)
	ClassUncondCtrl              // Unconditional branch, jump, or call
	ClassCondCtrl                // Conditional branch
	numClasses
)

var classNames = [numClasses]string{
	ClassNop:        "nop",
	ClassIntComp:    "int",
	ClassFPComp:     "fp",
	ClassLoad:       "load",
	ClassStore:      "store",
	ClassUncondCtrl: "jump",
	ClassCondCtrl:   "branch",
}

// Aliases accepted by ParseClass in addition to the canonical names.
var classAliases = map[string]Class{
	"trap":   ClassNop,
	"icomp":  ClassIntComp,
	"fcomp":  ClassFPComp,
	"call":   ClassUncondCtrl,
	"uncond": ClassUncondCtrl,
	"cond":   ClassCondCtrl,
}

// Normalize maps values outside the known range to ClassNop.
func (c Class) Normalize() Class {
	if c >= numClasses {
		return ClassNop
	}
	return c
}

// String returns the canonical name of the class.
func (c Class) String() string {
	return classNames[c.Normalize()]
}

// ParseClass converts a class name to a Class.
func ParseClass(name string) (Class, error) {
	for c, n := range classNames {
		if n == name {
			return Class(c), nil
		}
	}

	if c, ok := classAliases[name]; ok {
		return c, nil
	}

	return ClassNop, fmt.Errorf("unknown instruction class %q", name)
}

// IsNop returns true for trap and no-op instructions, which are skipped at
// fetch.
func (c Class) IsNop() bool {
	return c.Normalize() == ClassNop
}

// IsControl returns true for branches, jumps and calls.
func (c Class) IsControl() bool {
	return c == ClassUncondCtrl || c == ClassCondCtrl
}

// UsesIntFU returns true if the instruction executes on an integer unit.
func (c Class) UsesIntFU() bool {
	return c == ClassIntComp || c == ClassLoad || c == ClassStore
}

// UsesFPFU returns true if the instruction executes on a floating-point unit.
func (c Class) UsesFPFU() bool {
	return c == ClassFPComp
}

// WritesCDB returns true if the instruction produces a register result that
// must be broadcast on the common data bus.
func (c Class) WritesCDB() bool {
	return c == ClassIntComp || c == ClassLoad || c == ClassFPComp
}
