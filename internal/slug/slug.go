// Package slug turns listing titles into URL-safe identifiers that are unique
// within a listing variant.
//
// Make is a pure function. Allocate reads the slugs already taken for the
// variant and picks the first free candidate. The database unique index on
// (variant, slug) remains authoritative: callers run their insert in a
// bounded retry loop and call Allocate again when IsDuplicate reports a
// collision.
package slug

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

const (
	from = "àáâäæãåāăąçćčđďèéêëēėęěğǵḧîïíīįìłḿñńǹňôöòóœøōõőṕŕřßśšşșťțûüùúūǘůűųẃẍÿýžźż·/_,:;"
	to   = "aaaaaaaaaacccddeeeeeeeegghiiiiiilmnnnnoooooooooprrsssssttuuuuuuuuuwxyyzzz------"
)

var (
	substitutions = buildReplacer()

	whitespaceRE = regexp.MustCompile(`\s+`)
	invalidRE    = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphensRE    = regexp.MustCompile(`-{2,}`)
)

func buildReplacer() *strings.Replacer {
	src, dst := []rune(from), []rune(to)
	pairs := make([]string, 0, 2*len(src))
	for i, r := range src {
		pairs = append(pairs, string(r), string(dst[i]))
	}
	return strings.NewReplacer(pairs...)
}

// stripMarks removes combining marks left over after canonical decomposition,
// so characters outside the substitution table still lose their accents.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Make converts a title into its base slug. The result contains only
// [a-z0-9-], has no repeated hyphens, and never starts or ends with one.
// It may be empty when the title has no usable characters.
func Make(title string) string {
	s := strings.ToLower(title)
	s = whitespaceRE.ReplaceAllString(s, "-")
	s = substitutions.Replace(s)
	s = stripMarks(s)
	s = strings.ReplaceAll(s, "&", "-e-")
	s = invalidRE.ReplaceAllString(s, "")
	s = hyphensRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Next returns base when it is free, otherwise base-k for the smallest k >= 2
// that is not in taken.
func Next(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		used[t] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for k := 2; ; k++ {
		c := base + "-" + strconv.Itoa(k)
		if _, ok := used[c]; !ok {
			return c
		}
	}
}

// Allocator picks free slugs against the listings table.
type Allocator struct {
	// Taken lists slugs of the variant equal to base or prefixed by "base-".
	// Defaults to repo.TakenSlugs.
	Taken func(ctx context.Context, db *gorm.DB, variant domain.Variant, base, excludeID string) ([]string, error)
}

// NewAllocator returns an Allocator backed by the listing repository.
func NewAllocator() *Allocator {
	return &Allocator{Taken: repo.TakenSlugs}
}

// Allocate derives a slug for title that is free within variant. excludeID
// names a listing whose own slug must not count as a collision (edits).
// Titles that produce an empty base fall back to the variant file prefix.
func (a *Allocator) Allocate(ctx context.Context, db *gorm.DB, variant domain.Variant, title, excludeID string) (string, error) {
	base := Make(title)
	if base == "" {
		base = variant.FilePrefix()
	}
	taken := a.Taken
	if taken == nil {
		taken = repo.TakenSlugs
	}
	existing, err := taken(ctx, db, variant, base, excludeID)
	if err != nil {
		return "", err
	}
	return Next(base, existing), nil
}
