package detect

import (
	"reflect"
	"sort"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLoadRules(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "literal and regex markers",
			yaml: `markers:
  - name: opening
    kind: literal
    pattern: "***"
  - name: header
    kind: regex
    pattern: "\\n\\s*Part\\s+\\d+"
`,
			wantErr: false,
		},
		{
			name:    "no markers",
			yaml:    `markers: []`,
			wantErr: true,
		},
		{
			name: "unknown kind",
			yaml: `markers:
  - name: bad
    kind: glob
    pattern: "*"
`,
			wantErr: true,
		},
		{
			name: "invalid regex",
			yaml: `markers:
  - name: bad
    kind: regex
    pattern: "["
`,
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    `markers: [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadRules() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmbeddedRulesCompile(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if len(reg.markers) == 0 {
		t.Fatal("embedded registry has no markers")
	}
}

func TestRegistryMatch(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	t.Run("tibetan opening and latin chapter header", func(t *testing.T) {
		text := "༄༅༅། །རྒྱ་གར་སྐད་དུ། བྱང་ཆུབ་སེམས་དཔའ།\n" +
			"The opening section, rendered in translation.\n" +
			"Chapter 2: The Second Part\n" +
			"More prose follows the header."

		headerByte := strings.Index(text, "\nChapter")
		if headerByte < 0 {
			t.Fatal("test text is missing the chapter header")
		}
		wantHeader := utf8.RuneCountInString(text[:headerByte])

		positions := reg.Match(text)
		got := dedupeSorted(positions)
		want := []int{0, wantHeader}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Match() offsets = %v, want %v", got, want)
		}
	})

	t.Run("offsets are rune offsets not byte offsets", func(t *testing.T) {
		// The Tibetan prefix is 3 runes but 9 bytes; a byte-offset bug
		// would report the header three times further in.
		text := "བོད་\nChapter 1: Start\n"
		positions := dedupeSorted(reg.Match(text))

		wantAt := utf8.RuneCountInString(text[:strings.Index(text, "\nChapter")])
		if len(positions) != 1 || positions[0] != wantAt {
			t.Errorf("Match() = %v, want [%d]", positions, wantAt)
		}
	})

	t.Run("cjk chapter header", func(t *testing.T) {
		text := "前言部分。\n第二章 中观\n正文继续。"
		positions := dedupeSorted(reg.Match(text))

		wantAt := utf8.RuneCountInString(text[:strings.Index(text, "\n第二章")])
		if len(positions) != 1 || positions[0] != wantAt {
			t.Errorf("Match() = %v, want [%d]", positions, wantAt)
		}
	})

	t.Run("no markers yields nil", func(t *testing.T) {
		if got := reg.Match("plain prose with no structural markers at all"); got != nil {
			t.Errorf("Match() = %v, want nil", got)
		}
	})

	t.Run("repeated literal markers", func(t *testing.T) {
		text := "༄༅༅intro text ༄༅༅second section"
		positions := dedupeSorted(reg.Match(text))

		second := utf8.RuneCountInString(text[:strings.LastIndex(text, "༄༅༅")])
		want := []int{0, second}
		if !reflect.DeepEqual(positions, want) {
			t.Errorf("Match() = %v, want %v", positions, want)
		}
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		text := "༄༅༅། །prose\nChapter 3: again\nmore"
		first := dedupeSorted(reg.Match(text))
		for i := 0; i < 5; i++ {
			if got := dedupeSorted(reg.Match(text)); !reflect.DeepEqual(got, first) {
				t.Fatalf("Match() run %d = %v, first run %v", i, got, first)
			}
		}
	})
}

// dedupeSorted collapses the raw marker union (unordered, duplicated) into
// the sorted unique offsets the detector would derive from it.
func dedupeSorted(positions []int) []int {
	if len(positions) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(positions))
	var out []int
	for _, p := range positions {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
