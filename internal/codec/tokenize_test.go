package codec

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "a,b,c", []string{"a", "b", "c"}},
		{"trailing empty field", "a,b,", []string{"a", "b", ""}},
		{"leading empty field", ",a", []string{"", "a"}},
		{"empty line", "", []string{""}},
		{"quoted comma", `"a,b",c`, []string{"a,b", "c"}},
		{"quoted newline", "\"line1\nline2\",x", []string{"line1\nline2", "x"}},
		{"escaped quote", `"He said ""hi"""`, []string{`He said "hi"`}},
		{"quoted empty", `a,""`, []string{"a", ""}},
		{"unterminated quote", `"abc,def`, []string{"abc,def"}},
		{"text after closing quote", `"ab"cd,e`, []string{"abcd", "e"}},
		{"quote inside unquoted field", `a"b,c`, []string{`a"b`, "c"}},
		{"multibyte", "株式会社アクメ,山田 太郎", []string{"株式会社アクメ", "山田 太郎"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLine(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"", ""},
		{"a,b", `"a,b"`},
		{`He said "hi"`, `"He said ""hi"""`},
		{"line1\nline2", "\"line1\nline2\""},
		{" leading space", " leading space"},
	}

	for _, tt := range tests {
		if got := escapeCell(tt.input); got != tt.want {
			t.Errorf("escapeCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeThenParse_RoundTrip(t *testing.T) {
	values := []string{`He said "hi"`, "a,b", "line1\nline2", `""`, "plain", ""}
	for _, v := range values {
		got := ParseLine(escapeCell(v))
		if len(got) != 1 || got[0] != v {
			t.Errorf("ParseLine(escapeCell(%q)) = %q", v, got)
		}
	}
}
