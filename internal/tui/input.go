package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 500

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case "space":
		key = " "
	}
	if utf8.RuneCountInString(key) == 1 {
		if utf8.RuneCountInString(text) >= maxInputLen {
			return text
		}
		return text + key
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// formField is one labeled input in a form.
type formField struct {
	label  string
	value  string
	secret bool
	// choices makes the field a h/l cycle instead of free text.
	choices []string
	hint    string
}

// form is the shared tab-navigated form used by login, register, the
// booking request and provider verification.
type form struct {
	fields []formField
	focus  int
	errs   map[string]string // by label
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.fields[i].value)
}

func (f *form) next() {
	f.focus = (f.focus + 1) % len(f.fields)
}

func (f *form) prev() {
	f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
}

// cycle moves a choice field by delta.
func (f *form) cycle(delta int) {
	fld := &f.fields[f.focus]
	if len(fld.choices) == 0 {
		return
	}
	idx := 0
	for i, c := range fld.choices {
		if c == fld.value {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(fld.choices)) % len(fld.choices)
	fld.value = fld.choices[idx]
}

// key applies a keystroke and reports whether the form consumed it.
func (f *form) key(k string) bool {
	switch k {
	case "tab", "down":
		f.next()
		return true
	case "shift+tab", "up":
		f.prev()
		return true
	}
	fld := &f.fields[f.focus]
	if len(fld.choices) > 0 {
		switch k {
		case "h", "left":
			f.cycle(-1)
			return true
		case "l", "right":
			f.cycle(1)
			return true
		}
		return false
	}
	edited := editRune(fld.value, k)
	if edited != fld.value {
		fld.value = edited
		return true
	}
	return k == "backspace"
}

// setErrors maps server field errors onto labels by their json names.
func (f *form) setErrors(byJSON map[string]string, names map[string]string) {
	f.errs = map[string]string{}
	for field, msg := range byJSON {
		if label, ok := names[field]; ok {
			f.errs[label] = msg
		}
	}
}

func (f *form) View() string {
	var b strings.Builder
	width := 0
	for _, fld := range f.fields {
		width = max(width, len(fld.label))
	}
	for i, fld := range f.fields {
		cursor := " "
		style := metaStyle
		if i == f.focus {
			cursor = inputPromptStyle.Render(">")
			style = selectedStyle
		}
		label := style.Render(fmt.Sprintf("%-*s", width, fld.label))

		var value string
		switch {
		case len(fld.choices) > 0:
			value = accentStyle.Render(fld.value) + "  " + metaStyle.Render("(h/l to cycle)")
		case fld.value == "" && fld.hint != "" && i != f.focus:
			value = inputPlaceholderStyle.Render(fld.hint)
		case fld.secret:
			value = maskSecret(fld.value)
		default:
			value = fld.value
		}
		if i == f.focus && len(fld.choices) == 0 {
			value += accentStyle.Render("█")
		}
		fmt.Fprintf(&b, " %s %s  %s\n", cursor, label, value)
		if msg, ok := f.errs[fld.label]; ok {
			fmt.Fprintf(&b, "   %s  %s\n", strings.Repeat(" ", width), errorStyle.Render(msg))
		}
	}
	return b.String()
}

// sortedErrors renders field errors in a stable order for the status line.
func sortedErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k])
	}
	return strings.Join(parts, "; ")
}
