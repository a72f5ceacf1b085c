package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the glyphs the wizard draws with.
type SymbolSet struct {
	Success   string
	Warning   string
	Bullet    string
	Checked   string
	Unchecked string
	Cursor    string
}

var unicodeSymbols = SymbolSet{
	Success:   "\u2713", // ✓
	Warning:   "\u26A0", // ⚠
	Bullet:    "\u2022", // •
	Checked:   "\u25C9", // ◉
	Unchecked: "\u25CB", // ○
	Cursor:    "\u276F", // ❯
}

var asciiSymbols = SymbolSet{
	Success:   "[OK]",
	Warning:   "[!]",
	Bullet:    "*",
	Checked:   "[x]",
	Unchecked: "[ ]",
	Cursor:    ">",
}

var (
	SymbolSuccess   = unicodeSymbols.Success
	SymbolWarning   = unicodeSymbols.Warning
	SymbolBullet    = unicodeSymbols.Bullet
	SymbolChecked   = unicodeSymbols.Checked
	SymbolUnchecked = unicodeSymbols.Unchecked
	SymbolCursor    = unicodeSymbols.Cursor
)

// DetectUnicodeSupport reports whether the terminal likely renders Unicode.
// AISETUP_ASCII_SYMBOLS=1 forces ASCII; a locale naming a non-UTF-8 charset
// also selects ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("AISETUP_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if val == "" {
			continue
		}
		return strings.Contains(val, "utf-8") || strings.Contains(val, "utf8")
	}
	return true
}

// InitSymbols picks the symbol set for the current environment.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolWarning = set.Warning
	SymbolBullet = set.Bullet
	SymbolChecked = set.Checked
	SymbolUnchecked = set.Unchecked
	SymbolCursor = set.Cursor
}

func init() {
	InitSymbols()
}
