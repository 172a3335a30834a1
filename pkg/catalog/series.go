package catalog

import (
	"fmt"
	"time"
)

// Periodicity is the cadence at which a series is updated upstream. It
// drives the cache TTL policy: the more often a series changes, the
// sooner a cached window goes stale.
type Periodicity string

const (
	// Daily series update every business day.
	Daily Periodicity = "daily"

	// Weekly series update once a week (e.g. Focus survey medians).
	Weekly Periodicity = "weekly"

	// Monthly series update once a month (e.g. IPCA).
	Monthly Periodicity = "monthly"
)

// CacheTTL returns how long a cached window of a series with this
// periodicity stays fresh. Unknown periodicities fall back to the
// daily TTL.
func (p Periodicity) CacheTTL() time.Duration {
	switch p {
	case Daily:
		return 1 * time.Hour
	case Weekly:
		return 6 * time.Hour
	case Monthly:
		return 24 * time.Hour
	default:
		return 1 * time.Hour
	}
}

// Series describes one catalog entry. Instances are immutable after the
// registry is loaded.
type Series struct {
	// Code is the numeric SGS series identifier.
	Code int `yaml:"code"`

	// Name is the canonical human-readable name.
	Name string `yaml:"name"`

	// Description is a one-line description of what the series measures.
	Description string `yaml:"description"`

	// Periodicity is the upstream update cadence.
	Periodicity Periodicity `yaml:"periodicity"`

	// Unit is the unit of measurement, e.g. "% a.a." or "R$/US$".
	Unit string `yaml:"unit"`

	// Aliases are alternative lookup names, matched case-insensitively.
	Aliases []string `yaml:"aliases"`
}

func (s *Series) String() string {
	return fmt.Sprintf("Series(%d, %q, %s)", s.Code, s.Name, s.Periodicity)
}

// Ref identifies a series either by numeric code or by catalog name.
// The two cases are kept explicit so resolution happens exactly once at
// the API boundary instead of type-switching deep in the pipeline.
type Ref struct {
	code   int
	name   string
	byCode bool
}

// ByCode references a series by its numeric SGS code. Codes pass through
// resolution unchanged; existence is checked upstream, not here.
func ByCode(code int) Ref {
	return Ref{code: code, byCode: true}
}

// ByName references a series by catalog name or alias.
func ByName(name string) Ref {
	return Ref{name: name}
}

// IsCode reports whether the reference carries a numeric code.
func (r Ref) IsCode() bool { return r.byCode }

func (r Ref) String() string {
	if r.byCode {
		return fmt.Sprintf("%d", r.code)
	}
	return r.name
}
