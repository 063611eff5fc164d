package configuration

import (
	"fmt"
	"strings"
)

// iniFile is a parsed INI-style text blob. Section and option order is
// preserved so Options can report options the way they were written.
type iniFile struct {
	sections map[string]*iniSection
	order    []string
}

type iniSection struct {
	values map[string]string
	order  []string
}

func newIniFile() *iniFile {
	return &iniFile{sections: map[string]*iniSection{}}
}

// parseINI understands [section] headers, key = value and key : value lines,
// full-line # and ; comments, and value continuation by leading whitespace.
// Continuation lines are how multi-line PEM blocks are embedded.
func parseINI(text string) (*iniFile, error) {
	file := newIniFile()
	var section *iniSection
	var lastOption string

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			lastOption = ""
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";"):
			lastOption = ""
		case line[0] == ' ' || line[0] == '\t':
			if section == nil || lastOption == "" {
				return nil, fmt.Errorf("line %d: continuation without a preceding option", lineNo+1)
			}
			section.values[lastOption] += "\n" + trimmed
		case strings.HasPrefix(trimmed, "["):
			if !strings.HasSuffix(trimmed, "]") {
				return nil, fmt.Errorf("line %d: unterminated section header", lineNo+1)
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, fmt.Errorf("line %d: empty section name", lineNo+1)
			}
			section = file.section(name)
			lastOption = ""
		default:
			if section == nil {
				return nil, fmt.Errorf("line %d: option outside of any section", lineNo+1)
			}
			key, value, ok := splitOption(trimmed)
			if !ok {
				return nil, fmt.Errorf("line %d: expected 'option = value'", lineNo+1)
			}
			if _, seen := section.values[key]; !seen {
				section.order = append(section.order, key)
			}
			section.values[key] = value
			lastOption = key
		}
	}
	return file, nil
}

func splitOption(line string) (key, value string, ok bool) {
	idx := strings.IndexAny(line, "=:")
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func (f *iniFile) section(name string) *iniSection {
	if s, ok := f.sections[name]; ok {
		return s
	}
	s := &iniSection{values: map[string]string{}}
	f.sections[name] = s
	f.order = append(f.order, name)
	return s
}

func (f *iniFile) lookup(section, option string) (string, bool) {
	s, ok := f.sections[section]
	if !ok {
		return "", false
	}
	v, ok := s.values[option]
	return v, ok
}

func (f *iniFile) options(section string) []string {
	s, ok := f.sections[section]
	if !ok {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
