// Package repo contains the per-entity data-access layer. Every
// repository is bound to the transaction handle it was created with and
// must not outlive it; the uow package constructs one bundle per
// transactional scope.
package repo

import (
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// Repos bundles one consistent set of repositories bound to a single
// transaction.
type Repos struct {
	Resources  *ResourceRepo
	Visitors   *VisitorRepo
	Records    *RecordRepo
	Categories *CategoryRepo
}

// New creates a repository bundle bound to tx.
func New(tx *gorm.DB) *Repos {
	return &Repos{
		Resources:  &ResourceRepo{db: tx},
		Visitors:   &VisitorRepo{db: tx},
		Records:    &RecordRepo{db: tx},
		Categories: &CategoryRepo{db: tx},
	}
}

// capitalize upper-cases the first rune and lower-cases the rest,
// mirroring how users tend to type proper names.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// searchVariants returns the distinct casings tried for a substring
// search: the literal key, its capitalized form and its upper-cased
// form. LIKE is case-sensitive on some backends; matching all three
// variants covers the realistic spellings without relying on ILIKE.
func searchVariants(key string) []string {
	variants := []string{key, capitalize(key), strings.ToUpper(key)}
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// stringSearch builds a WHERE clause matching key as a substring of any
// of the given columns, in any tried casing.
func stringSearch(fields []string, key string) (string, []any) {
	variants := searchVariants(key)
	conds := make([]string, 0, len(fields)*len(variants))
	args := make([]any, 0, len(fields)*len(variants))
	for _, field := range fields {
		for _, v := range variants {
			conds = append(conds, field+" LIKE ?")
			args = append(args, "%"+v+"%")
		}
	}
	return strings.Join(conds, " OR "), args
}

// isNumeric reports whether s consists solely of ASCII digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
