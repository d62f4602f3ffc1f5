// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package imagebase // import "github.com/phlip9/sgx-panic-backtrace/imagebase"

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/phlip9/sgx-panic-backtrace/libpf"
	"github.com/phlip9/sgx-panic-backtrace/process"
)

// DefaultEnvVar is read by Env when no other variable name is given. The
// loader of the enclave exports the load address of the image in it.
const DefaultEnvVar = "SGX_IMAGE_BASE"

// Technique names accepted by FromNames.
const (
	NameEnv      = "env"
	NameSymbol   = "symbol"
	NameMappings = "maps"
	NameNone     = "none"
)

var (
	// ErrNotAvailable is returned by techniques that do not apply to the
	// current environment.
	ErrNotAvailable = errors.New("not available")
	// ErrSymbolNotFound is returned when the anchor symbol is missing from
	// the executable's symbol table, e.g. because it was stripped.
	ErrSymbolNotFound = errors.New("anchor symbol not found")
)

// Fixed returns a technique that always resolves to base.
func Fixed(base libpf.Address) Technique {
	return New("fixed", func() (libpf.Address, error) {
		return base, nil
	})
}

// Unavailable returns a technique that always fails. Reports then carry
// absolute addresses.
func Unavailable() Technique {
	return New(NameNone, func() (libpf.Address, error) {
		return 0, ErrNotAvailable
	})
}

// Env reads the base from the environment variable name, as hexadecimal with
// 0x prefix or as decimal.
func Env(name string) Technique {
	return New(NameEnv, func() (libpf.Address, error) {
		value, ok := os.LookupEnv(name)
		if !ok {
			return 0, fmt.Errorf("%s unset: %w", name, ErrNotAvailable)
		}
		return ParseAddress(value)
	})
}

// ParseAddress parses an address given as 0x-prefixed hexadecimal or decimal.
func ParseAddress(s string) (libpf.Address, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return libpf.Address(v), nil
}

// anchor is the function whose run time address is compared against its
// link time address.
//
//go:noinline
func anchor() {}

// Symbol compares the run time address of a function in this package with the
// address the linker assigned to it, read from the executable's symbol table.
// The difference is the load bias; adding the link address of the first
// loadable segment gives the address at which the image starts.
func Symbol() Technique {
	return New(NameSymbol, func() (libpf.Address, error) {
		exe, err := process.ExecutablePath()
		if err != nil {
			return 0, err
		}
		return symbolBase(exe, anchor)
	})
}

func symbolBase(exe string, fn any) (libpf.Address, error) {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return 0, fmt.Errorf("no function at 0x%x: %w", pc, ErrSymbolNotFound)
	}
	name := f.Name()

	ef, err := elf.Open(exe)
	if err != nil {
		return 0, err
	}
	defer ef.Close()

	syms, err := ef.Symbols()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, errors.Join(ErrSymbolNotFound, err))
	}
	linkAddr, found := uint64(0), false
	for i := range syms {
		if syms[i].Name == name && elf.ST_TYPE(syms[i].Info) == elf.STT_FUNC {
			linkAddr, found = syms[i].Value, true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", name, ErrSymbolNotFound)
	}

	start, err := imageStart(ef)
	if err != nil {
		return 0, err
	}
	bias := libpf.Address(pc) - libpf.Address(linkAddr)
	return bias + start, nil
}

// imageStart returns the link time address of file offset zero, derived from
// the lowest PT_LOAD segment.
func imageStart(ef *elf.File) (libpf.Address, error) {
	var first *elf.Prog
	for _, p := range ef.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if first == nil || p.Vaddr < first.Vaddr {
			first = p
		}
	}
	if first == nil {
		return 0, errors.New("no loadable segments")
	}
	return libpf.Address(first.Vaddr - first.Off), nil
}

// Mappings finds the lowest mapping of the executable in /proc/self/maps.
func Mappings() Technique {
	return New(NameMappings, func() (libpf.Address, error) {
		img, err := process.SelfImage()
		if err != nil {
			return 0, err
		}
		return img.Base, nil
	})
}

type chain []Technique

func (c chain) Name() string {
	names := make([]string, 0, len(c))
	for _, t := range c {
		names = append(names, t.Name())
	}
	return strings.Join(names, ",")
}

func (c chain) Resolve() (libpf.Address, error) {
	var errs []error
	for _, t := range c {
		base, err := t.Resolve()
		if err == nil {
			return base, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	if len(errs) == 0 {
		return 0, ErrNotAvailable
	}
	return 0, errors.Join(errs...)
}

// Chain tries each technique in order and returns the first success.
func Chain(techniques ...Technique) Technique {
	return chain(techniques)
}

// Default tries the environment first, then the symbol table, then procfs.
func Default() Technique {
	return Chain(Env(DefaultEnvVar), Symbol(), Mappings())
}

// FromNames builds a chain from technique names, e.g. "env,symbol,maps".
func FromNames(names string) (Technique, error) {
	var techniques []Technique
	for _, name := range strings.Split(names, ",") {
		switch strings.TrimSpace(name) {
		case NameEnv:
			techniques = append(techniques, Env(DefaultEnvVar))
		case NameSymbol:
			techniques = append(techniques, Symbol())
		case NameMappings:
			techniques = append(techniques, Mappings())
		case NameNone:
			techniques = append(techniques, Unavailable())
		case "":
		default:
			return nil, fmt.Errorf("unknown image base technique %q", name)
		}
	}
	if len(techniques) == 0 {
		return nil, errors.New("no image base technique given")
	}
	if len(techniques) == 1 {
		return techniques[0], nil
	}
	return Chain(techniques...), nil
}
