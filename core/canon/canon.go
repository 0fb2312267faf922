// Package canon holds the canonical 66-book Protestant registry and the
// alias table used to normalize alternate book name spellings.
//
// Both tables are package-level values built once at init and never
// mutated, so they are safe for concurrent readers. Accessors hand out
// copies.
package canon

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Testament is one of the two canonical groupings.
type Testament string

// Testament values as they appear in the flat output.
const (
	Old Testament = "Old"
	New Testament = "New"
)

// Registry sizes.
const (
	BookCount    = 66
	OldBookCount = 39
	NewBookCount = 27
)

// Book is an entry of the canonical registry.
type Book struct {
	Name      string
	OSIS      string
	Number    int // 1-based position in the registry
	Testament Testament
}

// registry lists the canon in order. Numbers are assigned in init.
var registry = []Book{
	// Old Testament
	{Name: "Genesis", OSIS: "Gen", Testament: Old},
	{Name: "Exodus", OSIS: "Exod", Testament: Old},
	{Name: "Leviticus", OSIS: "Lev", Testament: Old},
	{Name: "Numbers", OSIS: "Num", Testament: Old},
	{Name: "Deuteronomy", OSIS: "Deut", Testament: Old},
	{Name: "Joshua", OSIS: "Josh", Testament: Old},
	{Name: "Judges", OSIS: "Judg", Testament: Old},
	{Name: "Ruth", OSIS: "Ruth", Testament: Old},
	{Name: "1 Samuel", OSIS: "1Sam", Testament: Old},
	{Name: "2 Samuel", OSIS: "2Sam", Testament: Old},
	{Name: "1 Kings", OSIS: "1Kgs", Testament: Old},
	{Name: "2 Kings", OSIS: "2Kgs", Testament: Old},
	{Name: "1 Chronicles", OSIS: "1Chr", Testament: Old},
	{Name: "2 Chronicles", OSIS: "2Chr", Testament: Old},
	{Name: "Ezra", OSIS: "Ezra", Testament: Old},
	{Name: "Nehemiah", OSIS: "Neh", Testament: Old},
	{Name: "Esther", OSIS: "Esth", Testament: Old},
	{Name: "Job", OSIS: "Job", Testament: Old},
	{Name: "Psalms", OSIS: "Ps", Testament: Old},
	{Name: "Proverbs", OSIS: "Prov", Testament: Old},
	{Name: "Ecclesiastes", OSIS: "Eccl", Testament: Old},
	{Name: "Song of Solomon", OSIS: "Song", Testament: Old},
	{Name: "Isaiah", OSIS: "Isa", Testament: Old},
	{Name: "Jeremiah", OSIS: "Jer", Testament: Old},
	{Name: "Lamentations", OSIS: "Lam", Testament: Old},
	{Name: "Ezekiel", OSIS: "Ezek", Testament: Old},
	{Name: "Daniel", OSIS: "Dan", Testament: Old},
	{Name: "Hosea", OSIS: "Hos", Testament: Old},
	{Name: "Joel", OSIS: "Joel", Testament: Old},
	{Name: "Amos", OSIS: "Amos", Testament: Old},
	{Name: "Obadiah", OSIS: "Obad", Testament: Old},
	{Name: "Jonah", OSIS: "Jonah", Testament: Old},
	{Name: "Micah", OSIS: "Mic", Testament: Old},
	{Name: "Nahum", OSIS: "Nah", Testament: Old},
	{Name: "Habakkuk", OSIS: "Hab", Testament: Old},
	{Name: "Zephaniah", OSIS: "Zeph", Testament: Old},
	{Name: "Haggai", OSIS: "Hag", Testament: Old},
	{Name: "Zechariah", OSIS: "Zech", Testament: Old},
	{Name: "Malachi", OSIS: "Mal", Testament: Old},
	// New Testament
	{Name: "Matthew", OSIS: "Matt", Testament: New},
	{Name: "Mark", OSIS: "Mark", Testament: New},
	{Name: "Luke", OSIS: "Luke", Testament: New},
	{Name: "John", OSIS: "John", Testament: New},
	{Name: "Acts", OSIS: "Acts", Testament: New},
	{Name: "Romans", OSIS: "Rom", Testament: New},
	{Name: "1 Corinthians", OSIS: "1Cor", Testament: New},
	{Name: "2 Corinthians", OSIS: "2Cor", Testament: New},
	{Name: "Galatians", OSIS: "Gal", Testament: New},
	{Name: "Ephesians", OSIS: "Eph", Testament: New},
	{Name: "Philippians", OSIS: "Phil", Testament: New},
	{Name: "Colossians", OSIS: "Col", Testament: New},
	{Name: "1 Thessalonians", OSIS: "1Thess", Testament: New},
	{Name: "2 Thessalonians", OSIS: "2Thess", Testament: New},
	{Name: "1 Timothy", OSIS: "1Tim", Testament: New},
	{Name: "2 Timothy", OSIS: "2Tim", Testament: New},
	{Name: "Titus", OSIS: "Titus", Testament: New},
	{Name: "Philemon", OSIS: "Phlm", Testament: New},
	{Name: "Hebrews", OSIS: "Heb", Testament: New},
	{Name: "James", OSIS: "Jas", Testament: New},
	{Name: "1 Peter", OSIS: "1Pet", Testament: New},
	{Name: "2 Peter", OSIS: "2Pet", Testament: New},
	{Name: "1 John", OSIS: "1John", Testament: New},
	{Name: "2 John", OSIS: "2John", Testament: New},
	{Name: "3 John", OSIS: "3John", Testament: New},
	{Name: "Jude", OSIS: "Jude", Testament: New},
	{Name: "Revelation", OSIS: "Rev", Testament: New},
}

// aliases maps lower-cased alternate spellings to registry names.
var aliases = map[string]string{
	"psalm":                 "Psalms",
	"psalms":                "Psalms",
	"song of songs":         "Song of Solomon",
	"song of solomon":       "Song of Solomon",
	"canticles":             "Song of Solomon",
	"canticle of canticles": "Song of Solomon",
	"revelations":           "Revelation",
	"revelation of john":    "Revelation",
	"the revelation":        "Revelation",
	"apocalypse":            "Revelation",
}

// byName indexes the registry by exact name.
var byName map[string]int

func init() {
	byName = make(map[string]int, len(registry))
	for i := range registry {
		registry[i].Number = i + 1
		byName[registry[i].Name] = i
	}
}

// Books returns a copy of the registry in canonical order.
func Books() []Book {
	out := make([]Book, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a registry entry by exact (case-sensitive) name.
func Lookup(name string) (Book, bool) {
	i, ok := byName[name]
	if !ok {
		return Book{}, false
	}
	return registry[i], true
}

// ByNumber returns the entry at the given 1-based canonical number.
func ByNumber(n int) (Book, bool) {
	if n < 1 || n > len(registry) {
		return Book{}, false
	}
	return registry[n-1], true
}

// Aliases returns a copy of the alias table.
func Aliases() map[string]string {
	out := make(map[string]string, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// Normalize trims name and resolves it through the alias table. When no
// alias matches, the trimmed name is returned with its original casing.
// The boolean reports whether an alias was applied.
func Normalize(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	key := cases.Lower(language.Und).String(trimmed)
	if canonical, ok := aliases[key]; ok {
		return canonical, true
	}
	return trimmed, false
}
