package engine

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{pattern: ".o", name: "main.o", want: true},
		{pattern: ".o", name: "main.c", want: false},
		{pattern: "%.o", name: "main.o", want: true},
		{pattern: "%.o", name: "dir/main.o", want: true},
		{pattern: "obj/%.o", name: "obj/main.o", want: true},
		{pattern: "obj/%.o", name: "src/main.o", want: false},
		{pattern: "obj/%.o", name: "obj/sub/main.o", want: false},
		{pattern: "lib%.a", name: "libz.a", want: true},
		{pattern: "lib%.a", name: "z.a", want: false},
		{pattern: "ab%ba", name: "aba", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.name, func(t *testing.T) {
			p, err := parsePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.match(tt.name))
		})
	}
}

func TestPattern_Source(t *testing.T) {
	tests := []struct {
		pattern string
		source  string
		name    string
		want    string
	}{
		{pattern: "%.o", source: "%.c", name: "dir/main.o", want: "dir/main.c"},
		{pattern: "%.o", source: "%.c", name: "main.o", want: "main.c"},
		{pattern: "%.o", source: ".c", name: "dir/main.o", want: "dir/main.c"},
		{pattern: "obj/%.o", source: "src/%.c", name: "obj/main.o", want: "src/main.c"},
		{pattern: ".o", source: ".c", name: "dir/main.o", want: "dir/main.c"},
		{pattern: ".html", source: "%.md", name: "index.html", want: "index.md"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.name, func(t *testing.T) {
			p, err := parsePattern(tt.pattern)
			require.NoError(t, err)

			got, err := p.source(tt.name, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPattern_RegexpSource(t *testing.T) {
	p := regexpPattern(regexp.MustCompile(`^(.*)\.min\.js$`))

	tests := []struct {
		source string
		want   string
	}{
		{source: "$1.js", want: "app.js"},
		{source: "src/%.js", want: "src/app.js"},
		{source: ".ts", want: "app.min.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.True(t, p.match("app.min.js"))
			got, err := p.source("app.min.js", tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPattern_Invalid(t *testing.T) {
	for _, raw := range []string{"", "%a%", "%dir/x.o"} {
		_, err := parsePattern(raw)
		assert.ErrorIs(t, err, ErrInvalidPattern, "pattern %q", raw)
	}
}
