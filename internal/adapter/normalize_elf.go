package adapter

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	m "regcov.dev/pkg/regcov/internal/model"
)

var elfMagic = []byte("\x7fELF")

// ELFNormalizer canonicalizes ELF objects: sections are emitted in name
// order, debug-only and build-metadata sections are dropped (the line table
// is kept) and the symbol table is re-emitted sorted by name.
type ELFNormalizer struct{}

// NewELFNormalizer returns an ELFNormalizer.
func NewELFNormalizer() *ELFNormalizer {
	return &ELFNormalizer{}
}

// Name implements Normalizer.
func (n *ELFNormalizer) Name() string {
	return "elf"
}

// Accepts implements Normalizer.
func (n *ELFNormalizer) Accepts(_ m.Path, content []byte) bool {
	return bytes.HasPrefix(content, elfMagic)
}

// Normalize implements Normalizer.
func (n *ELFNormalizer) Normalize(content []byte) ([]byte, error) {
	file, err := elf.NewFile(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse elf: %w", err)
	}

	defer func() { _ = file.Close() }()

	var out bytes.Buffer

	fmt.Fprintf(&out, "class=%s machine=%s type=%s\n", file.Class, file.Machine, file.Type)

	sections := make([]*elf.Section, 0, len(file.Sections))

	for _, section := range file.Sections {
		if section.Type == elf.SHT_NULL || dropELFSection(section) {
			continue
		}

		sections = append(sections, section)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Name < sections[j].Name
	})

	for _, section := range sections {
		if err := writeELFSection(&out, section); err != nil {
			return nil, err
		}
	}

	if err := writeELFSymbols(&out, file); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

func dropELFSection(section *elf.Section) bool {
	name := section.Name

	switch {
	case name == ".debug_line":
		return false
	case strings.HasPrefix(name, ".debug_"), strings.HasPrefix(name, ".zdebug_"):
		return true
	case strings.HasPrefix(name, ".note."), name == ".comment", name == ".gnu_debuglink":
		return true
	case name == ".shstrtab":
		// Names are emitted with each section.
		return true
	case section.Type == elf.SHT_SYMTAB, name == ".strtab":
		// Re-emitted in name order by writeELFSymbols.
		return true
	}

	return false
}

func writeELFSection(out *bytes.Buffer, section *elf.Section) error {
	fmt.Fprintf(out, "section %s type=%s flags=%s\n", section.Name, section.Type, section.Flags)

	if section.Type == elf.SHT_NOBITS {
		fmt.Fprintf(out, "size=%d\n", section.Size)
		return nil
	}

	data, err := section.Data()
	if err != nil {
		return fmt.Errorf("read section %s: %w", section.Name, err)
	}

	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	out.Write(length[:])
	out.Write(data)
	out.WriteByte('\n')

	return nil
}

func writeELFSymbols(out *bytes.Buffer, file *elf.File) error {
	symbols, err := file.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil
		}

		return fmt.Errorf("read symbols: %w", err)
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}

		return symbols[i].Value < symbols[j].Value
	})

	for _, symbol := range symbols {
		sectionName := ""
		if idx := int(symbol.Section); idx > 0 && idx < len(file.Sections) {
			sectionName = file.Sections[idx].Name
		}

		fmt.Fprintf(out, "symbol %s info=%d other=%d section=%s value=%d size=%d\n",
			symbol.Name, symbol.Info, symbol.Other, sectionName, symbol.Value, symbol.Size)
	}

	return nil
}
