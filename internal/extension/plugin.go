package extension

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

var ErrDependency = errors.New("unmet plugin dependency")

// TicketsPlus names the host ticketing add-on this extension plugs into.
const TicketsPlus = "tickets-plus"

// Plugin describes the extension and the minimum versions of the parent
// plugins it needs.
type Plugin struct {
	Name         string
	Version      string
	Dependencies map[string]string
}

// Manifest is this extension's plugin description.
var Manifest = Plugin{
	Name:    "Event Tickets Extension: Per Event Checkin API",
	Version: "1.0.0",
	Dependencies: map[string]string{
		TicketsPlus: "5.7.1",
	},
}

// CheckDependencies compares installed versions against the manifest. Every
// unmet dependency is reported in the returned error.
func (p Plugin) CheckDependencies(installed map[string]string) error {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		want := p.Dependencies[name]
		have, ok := installed[name]
		if !ok || have == "" {
			problems = append(problems, fmt.Sprintf("%s %s or later is not installed", name, want))
			continue
		}
		hv, wv := canonical(have), canonical(want)
		if !semver.IsValid(hv) {
			problems = append(problems, fmt.Sprintf("%s has unparseable version %q", name, have))
			continue
		}
		if semver.Compare(hv, wv) < 0 {
			problems = append(problems, fmt.Sprintf("%s %s is older than required %s", name, have, want))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrDependency, strings.Join(problems, "; "))
	}
	return nil
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
