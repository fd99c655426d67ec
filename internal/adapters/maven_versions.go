package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	pep440 "github.com/aquasecurity/go-pep440-version"
	debversion "github.com/knqyf263/go-deb-version"
)

const latestVersion = "latest"

// versionCache memoizes parsed versions while ordering the candidates of a
// dynamic version request.
type versionCache struct {
	deb  map[string]*debversion.Version
	pep  map[string]*pep440.Version
	spec map[string]pep440.Specifiers
}

func newVersionCache() *versionCache {
	return &versionCache{
		deb:  map[string]*debversion.Version{},
		pep:  map[string]*pep440.Version{},
		spec: map[string]pep440.Specifiers{},
	}
}

// debVersion returns a parsed Debian version or nil when value does not
// parse.
func (c *versionCache) debVersion(value string) *debversion.Version {
	if parsed, ok := c.deb[value]; ok {
		return parsed
	}
	var out *debversion.Version
	if parsed, err := debversion.NewVersion(value); err == nil {
		out = &parsed
	}
	c.deb[value] = out
	return out
}

func (c *versionCache) pepVersion(value string) *pep440.Version {
	if parsed, ok := c.pep[value]; ok {
		return parsed
	}
	var out *pep440.Version
	if parsed, err := pep440.Parse(value); err == nil {
		out = &parsed
	}
	c.pep[value] = out
	return out
}

func (c *versionCache) pepSpec(value string) (pep440.Specifiers, error) {
	if parsed, ok := c.spec[value]; ok {
		return parsed, nil
	}
	parsed, err := pep440.NewSpecifiers(value)
	if err != nil {
		return pep440.Specifiers{}, err
	}
	c.spec[value] = parsed
	return parsed, nil
}

// compare orders maven versions with Debian semantics, which treat digit
// runs numerically ("build.10" > "build.9"). Versions Debian rejects fall
// back to PEP 440 and finally to plain string order.
func (c *versionCache) compare(a string, b string) int {
	if v1, v2 := c.debVersion(a), c.debVersion(b); v1 != nil && v2 != nil {
		return v1.Compare(*v2)
	}
	if v1, v2 := c.pepVersion(a), c.pepVersion(b); v1 != nil && v2 != nil {
		return v1.Compare(*v2)
	}
	return strings.Compare(a, b)
}

// isDynamicVersion reports whether request selects among published versions
// instead of naming one.
func isDynamicVersion(request string) bool {
	return request == latestVersion || strings.HasSuffix(request, "+") || isSpecifierSet(request)
}

func isSpecifierSet(request string) bool {
	return strings.ContainsAny(request, "<>=!~")
}

// selectVersion picks the highest version from available that satisfies
// request: "latest", a prefix ending in "+" or a PEP 440 specifier set.
func selectVersion(request string, available []string) (string, error) {
	if len(available) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no available versions for %s", request))
	}
	cache := newVersionCache()
	var candidates []string
	switch {
	case request == latestVersion:
		candidates = append(candidates, available...)
	case strings.HasSuffix(request, "+"):
		prefix := strings.TrimSuffix(request, "+")
		for _, version := range available {
			if strings.HasPrefix(version, prefix) {
				candidates = append(candidates, version)
			}
		}
	case isSpecifierSet(request):
		spec, err := cache.pepSpec(request)
		if err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid version specifier %q", request)).
				WithCause(err)
		}
		for _, version := range available {
			parsed := cache.pepVersion(version)
			if parsed != nil && spec.Check(*parsed) {
				candidates = append(candidates, version)
			}
		}
	default:
		for _, version := range available {
			if version == request {
				return version, nil
			}
		}
	}
	if len(candidates) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no compatible version for %s", request))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return cache.compare(candidates[i], candidates[j]) > 0
	})
	return candidates[0], nil
}
