package engine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Wildcard — плейсхолдер основы (stem) в шаблонах правил.
const Wildcard = "%"

type patternKind int

const (
	// patternSuffix — литеральный суффикс: ".o".
	patternSuffix patternKind = iota
	// patternWildcard — один "%": "obj/%.o".
	patternWildcard
	// patternRegexp — регулярное выражение.
	patternRegexp
)

// pattern — разобранный шаблон цели правила.
type pattern struct {
	kind patternKind
	raw  string
	re   *regexp.Regexp

	// Для patternWildcard.
	dir    string
	hasDir bool
	prefix string
	suffix string
}

// wildcardParts — части шаблона с "%": каталог, префикс и суффикс имени файла.
type wildcardParts struct {
	dir    string
	hasDir bool
	prefix string
	suffix string
}

func splitWildcard(p string) (wildcardParts, error) {
	if n := strings.Count(p, Wildcard); n != 1 {
		return wildcardParts{}, fmt.Errorf("%w: %q must contain exactly one %q", ErrInvalidPattern, p, Wildcard)
	}
	base := filepath.Base(p)
	if !strings.Contains(base, Wildcard) {
		return wildcardParts{}, fmt.Errorf("%w: %q: %q is only allowed in the file name", ErrInvalidPattern, p, Wildcard)
	}
	prefix, suffix, _ := strings.Cut(base, Wildcard)
	return wildcardParts{
		dir:    filepath.Dir(p),
		hasDir: strings.ContainsRune(p, '/') || strings.ContainsRune(p, filepath.Separator),
		prefix: prefix,
		suffix: suffix,
	}, nil
}

func parsePattern(raw string) (pattern, error) {
	if raw == "" {
		return pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if !strings.Contains(raw, Wildcard) {
		return pattern{kind: patternSuffix, raw: raw}, nil
	}
	parts, err := splitWildcard(raw)
	if err != nil {
		return pattern{}, err
	}
	return pattern{
		kind:   patternWildcard,
		raw:    raw,
		dir:    parts.dir,
		hasDir: parts.hasDir,
		prefix: parts.prefix,
		suffix: parts.suffix,
	}, nil
}

func regexpPattern(re *regexp.Regexp) pattern {
	return pattern{kind: patternRegexp, raw: re.String(), re: re}
}

// key — ключ правила в namespace.
func (p pattern) key() string {
	if p.kind == patternRegexp {
		return "/" + p.raw + "/"
	}
	return p.raw
}

// String возвращает исходную запись шаблона.
func (p pattern) String() string { return p.key() }

// match проверяет имя (без namespace) на соответствие шаблону.
//
// Шаблон с "%" без каталога применяется в любом каталоге;
// с каталогом — только если каталог кандидата совпадает.
func (p pattern) match(name string) bool {
	switch p.kind {
	case patternRegexp:
		return p.re.MatchString(name)
	case patternWildcard:
		_, ok := p.stem(name)
		return ok
	default:
		return strings.HasSuffix(name, p.raw)
	}
}

// stem извлекает часть имени, совпавшую с "%".
func (p pattern) stem(name string) (string, bool) {
	if p.hasDir && filepath.Dir(name) != p.dir {
		return "", false
	}
	base := filepath.Base(name)
	if len(base) < len(p.prefix)+len(p.suffix) {
		return "", false
	}
	if !strings.HasPrefix(base, p.prefix) || !strings.HasSuffix(base, p.suffix) {
		return "", false
	}
	return base[len(p.prefix) : len(base)-len(p.suffix)], true
}

// source вычисляет имя исходного файла для имени цели.
func (p pattern) source(name, src string) (string, error) {
	switch p.kind {
	case patternWildcard:
		stem, ok := p.stem(name)
		if !ok {
			return "", fmt.Errorf("%w: %q does not match %q", ErrInvalidPattern, name, p.raw)
		}
		if !strings.Contains(src, Wildcard) {
			return strings.TrimSuffix(name, p.suffix) + src, nil
		}
		sp, err := splitWildcard(src)
		if err != nil {
			return "", err
		}
		base := sp.prefix + stem + sp.suffix
		if !sp.hasDir && !p.hasDir {
			return filepath.Join(filepath.Dir(name), base), nil
		}
		return filepath.Join(sp.dir, base), nil

	case patternRegexp:
		if strings.Contains(src, "$") {
			return p.re.ReplaceAllString(name, src), nil
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if strings.Contains(src, Wildcard) {
			if m := p.re.FindStringSubmatch(name); len(m) > 1 {
				stem = m[1]
			}
			return strings.Replace(src, Wildcard, stem, 1), nil
		}
		return stem + src, nil

	default:
		root := strings.TrimSuffix(name, p.raw)
		if strings.Contains(src, Wildcard) {
			return strings.Replace(src, Wildcard, root, 1), nil
		}
		return root + src, nil
	}
}
