// Package inifile reads and writes the INI dialect used by nearabi.ini and
// setup.cfg: [sections], key = value or key: value pairs, # and ; comments,
// and indented continuation lines.
package inifile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File represents a parsed INI file.
type File struct {
	Sections []Section
}

// Section represents a named section in an INI file.
type Section struct {
	Name   string     // e.g., "generate", "metadata"
	Values []KeyValue // preserves order
}

// KeyValue represents a key-value pair.
type KeyValue struct {
	Key   string
	Value string
	Line  int
}

// SyntaxError reports a malformed line.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads an INI file from the given reader.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	var (
		current *Section
		last    *KeyValue
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		// Indented lines continue the previous value.
		if raw[0] == ' ' || raw[0] == '\t' {
			if last == nil {
				return nil, &SyntaxError{Line: lineNo, Msg: "continuation line without a key"}
			}
			if last.Value == "" {
				last.Value = line
			} else {
				last.Value += "\n" + line
			}
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("unterminated section header %q", line)}
			}
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if name == "" {
				return nil, &SyntaxError{Line: lineNo, Msg: "empty section name"}
			}
			f.Sections = append(f.Sections, Section{Name: name})
			current = &f.Sections[len(f.Sections)-1]
			last = nil
			continue
		}

		if current == nil {
			return nil, &SyntaxError{Line: lineNo, Msg: "key outside of any section"}
		}

		i := strings.IndexAny(line, "=:")
		if i < 0 {
			return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("expected key = value, got %q", line)}
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		if key == "" {
			return nil, &SyntaxError{Line: lineNo, Msg: "empty key"}
		}
		current.Values = append(current.Values, KeyValue{
			Key:   key,
			Value: strings.TrimSpace(line[i+1:]),
			Line:  lineNo,
		})
		last = &current.Values[len(current.Values)-1]
	}

	return f, scanner.Err()
}

// ParseFile reads and parses an INI file from disk.
func ParseFile(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	f, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Section returns the section with the given name (case-insensitive).
func (f *File) Section(name string) *Section {
	name = strings.ToLower(name)
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// Get returns the last value for a key in a section.
func (f *File) Get(section, key string) string {
	v, _ := f.Lookup(section, key)
	return v
}

// Lookup is Get that also reports whether the key is present.
func (f *File) Lookup(section, key string) (string, bool) {
	s := f.Section(section)
	if s == nil {
		return "", false
	}
	kv := s.find(key)
	if kv == nil {
		return "", false
	}
	return kv.Value, true
}

// GetBool parses a boolean value. Missing keys yield def.
func (f *File) GetBool(section, key string, def bool) (bool, error) {
	v, ok := f.Lookup(section, key)
	if !ok || v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("%s.%s: invalid boolean %q", section, key, v)
}

// GetInt parses an integer value. Missing keys yield def.
func (f *File) GetInt(section, key string, def int) (int, error) {
	v, ok := f.Lookup(section, key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: invalid integer %q", section, key, v)
	}
	return n, nil
}

// GetList splits a value on commas and newlines, dropping empty items.
func (f *File) GetList(section, key string) []string {
	v := f.Get(section, key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Get returns the last value for a key (case-insensitive).
func (s *Section) Get(key string) string {
	if kv := s.find(key); kv != nil {
		return kv.Value
	}
	return ""
}

// HasKey returns true if the section contains the given key.
func (s *Section) HasKey(key string) bool {
	return s.find(key) != nil
}

func (s *Section) find(key string) *KeyValue {
	key = strings.ToLower(key)
	var found *KeyValue
	for i := range s.Values {
		if s.Values[i].Key == key {
			found = &s.Values[i]
		}
	}
	return found
}

// Set sets a key-value pair in the specified section.
// If the section doesn't exist, it is created.
// If the key already exists, its value is replaced.
func (f *File) Set(section, key, value string) {
	section = strings.ToLower(section)
	key = strings.ToLower(key)

	s := f.Section(section)
	if s == nil {
		f.Sections = append(f.Sections, Section{Name: section})
		s = &f.Sections[len(f.Sections)-1]
	}
	if kv := s.find(key); kv != nil {
		kv.Value = value
		return
	}
	s.Values = append(s.Values, KeyValue{Key: key, Value: value})
}

// Write serializes the INI file to the given writer. Multi-line values are
// written as continuation lines.
func (f *File) Write(w io.Writer) error {
	for i, section := range f.Sections {
		if _, err := fmt.Fprintf(w, "[%s]\n", section.Name); err != nil {
			return err
		}
		for _, kv := range section.Values {
			value := strings.ReplaceAll(kv.Value, "\n", "\n    ")
			if _, err := fmt.Fprintf(w, "%s = %s\n", kv.Key, value); err != nil {
				return err
			}
		}
		if i < len(f.Sections)-1 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteFile writes the INI file to the specified path.
func (f *File) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := f.Write(file); err != nil {
		return err
	}
	return file.Sync()
}
