package eventlog

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// KeyKind distinguishes the three families of keys a log can carry.
type KeyKind uint8

const (
	// KeyChar is a single printable character.
	KeyChar KeyKind = iota + 1
	// KeyModifier is a modifier that is held while other keys are pressed.
	KeyModifier
	// KeySpecial is a named non-printable key such as enter or f5.
	KeySpecial
)

func (k KeyKind) String() string {
	switch k {
	case KeyChar:
		return "char"
	case KeyModifier:
		return "modifier"
	case KeySpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Key is resolved once, when an event is captured or loaded.
// Name is the character itself for KeyChar and a canonical lower-case name otherwise.
type Key struct {
	Kind KeyKind
	Name string
}

// Char returns a printable character key.
func Char(r rune) Key {
	return Key{Kind: KeyChar, Name: string(r)}
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool { return k.Kind == 0 && k.Name == "" }

// String returns the persisted representation of the key.
func (k Key) String() string { return k.Name }

var modifierAliases = map[string]string{
	"shift":   "shift",
	"shift_l": "shift",
	"lshift":  "shift",
	"shift_r": "shift_r",
	"rshift":  "shift_r",
	"ctrl":    "ctrl",
	"control": "ctrl",
	"ctrl_l":  "ctrl",
	"lctrl":   "ctrl",
	"ctrl_r":  "ctrl_r",
	"rctrl":   "ctrl_r",
	"alt":     "alt",
	"alt_l":   "alt",
	"lalt":    "alt",
	"alt_r":   "alt_r",
	"ralt":    "alt_r",
	"alt_gr":  "alt_r",
	"cmd":     "cmd",
	"cmd_l":   "cmd",
	"command": "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"lcmd":    "cmd",
	"cmd_r":   "cmd_r",
	"rcmd":    "cmd_r",
}

var specialAliases = map[string]string{
	"enter":        "enter",
	"return":       "enter",
	"esc":          "esc",
	"escape":       "esc",
	"tab":          "tab",
	"space":        "space",
	"backspace":    "backspace",
	"delete":       "delete",
	"del":          "delete",
	"insert":       "insert",
	"home":         "home",
	"end":          "end",
	"page_up":      "page_up",
	"pageup":       "page_up",
	"page_down":    "page_down",
	"pagedown":     "page_down",
	"up":           "up",
	"down":         "down",
	"left":         "left",
	"right":        "right",
	"caps_lock":    "caps_lock",
	"capslock":     "caps_lock",
	"num_lock":     "num_lock",
	"scroll_lock":  "scroll_lock",
	"print_screen": "print_screen",
	"printscreen":  "print_screen",
	"pause":        "pause",
	"menu":         "menu",
}

func init() {
	for i := 1; i <= 24; i++ {
		name := fmt.Sprintf("f%d", i)
		specialAliases[name] = name
	}
}

// ParseKey resolves a captured or persisted key string into a Key.
// Names carrying a "Key." prefix are accepted.
func ParseKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("empty key")
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if r == ' ' {
			return Key{Kind: KeySpecial, Name: "space"}, nil
		}
		return Char(r), nil
	}

	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "key.")
	name = strings.ReplaceAll(name, "-", "_")
	if canonical, ok := modifierAliases[name]; ok {
		return Key{Kind: KeyModifier, Name: canonical}, nil
	}
	if canonical, ok := specialAliases[name]; ok {
		return Key{Kind: KeySpecial, Name: canonical}, nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return Char(r), nil
	}
	return Key{}, fmt.Errorf("unknown key %q", raw)
}

// MustParseKey is ParseKey for fixed literals; it panics on unknown names.
func MustParseKey(raw string) Key {
	k, err := ParseKey(raw)
	if err != nil {
		panic(err)
	}
	return k
}
