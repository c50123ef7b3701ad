package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/config"
)

// FilterType says whether a filter selects or removes matches
type FilterType int

const (
	FilterInclusive FilterType = iota
	FilterExclusive
)

// AssemblyFilter is one +[assembly]type or -[assembly]type rule
type AssemblyFilter struct {
	Type            FilterType
	AssemblyPattern string
	TypePattern     string

	assembly *regexp.Regexp
	class    *regexp.Regexp
}

// ParseFilter parses a single filter rule
func ParseFilter(raw string) (*AssemblyFilter, error) {
	raw = strings.TrimSpace(raw)
	if err := config.ValidateFilter(raw); err != nil {
		return nil, domain.NewInvalidInputError(err.Error(), nil)
	}

	end := strings.IndexByte(raw, ']')
	f := &AssemblyFilter{
		Type:            FilterInclusive,
		AssemblyPattern: raw[2:end],
		TypePattern:     raw[end+1:],
	}
	if raw[0] == '-' {
		f.Type = FilterExclusive
	}
	f.assembly = wildcardRegexp(f.AssemblyPattern)
	f.class = wildcardRegexp(f.TypePattern)
	return f, nil
}

// ParseFilters parses rules, each entry possibly holding several rules
// separated by ';'
func ParseFilters(rules []string) ([]*AssemblyFilter, error) {
	var filters []*AssemblyFilter
	for _, entry := range rules {
		for _, part := range strings.Split(entry, ";") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := ParseFilter(part)
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		}
	}
	return filters, nil
}

// String returns the rule in its textual form
func (f *AssemblyFilter) String() string {
	sign := "+"
	if f.Type == FilterExclusive {
		sign = "-"
	}
	return fmt.Sprintf("%s[%s]%s", sign, f.AssemblyPattern, f.TypePattern)
}

// MatchesAssembly reports whether the rule applies to an assembly name
func (f *AssemblyFilter) MatchesAssembly(name string) bool {
	return f.assembly.MatchString(name)
}

// MatchesType reports whether the rule applies to a type name
func (f *AssemblyFilter) MatchesType(name string) bool {
	return f.class.MatchString(name)
}

// wholeAssembly reports whether the rule targets every type
func (f *AssemblyFilter) wholeAssembly() bool {
	return f.TypePattern == "*"
}

// ApplyFilters runs exclusive rules, then inclusive ones, over an assembly
// and its classes. Inclusive rules only undo skips made by filters.
func ApplyFilters(asm *domain.Assembly, filters []*AssemblyFilter) {
	name := asm.ShortName()

	for _, f := range filters {
		if f.Type != FilterExclusive || !f.MatchesAssembly(name) {
			continue
		}
		if f.wholeAssembly() {
			if !asm.IsSkipped() {
				asm.SkipReason = domain.SkipReasonFilter
			}
			continue
		}
		for _, c := range asm.Classes {
			if !c.IsSkipped() && f.MatchesType(c.Name) {
				c.SkipReason = domain.SkipReasonFilter
			}
		}
	}

	for _, f := range filters {
		if f.Type != FilterInclusive || !f.MatchesAssembly(name) {
			continue
		}
		if asm.SkipReason == domain.SkipReasonFilter {
			asm.SkipReason = domain.SkipReasonNone
		}
		for _, c := range asm.Classes {
			if c.SkipReason == domain.SkipReasonFilter && f.MatchesType(c.Name) {
				c.SkipReason = domain.SkipReasonNone
			}
		}
	}
}

// MatchesWildcard matches name against a pattern where * is any run of characters
func MatchesWildcard(pattern, name string) bool {
	return wildcardRegexp(pattern).MatchString(name)
}

func wildcardRegexp(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	return regexp.MustCompile("^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
}
