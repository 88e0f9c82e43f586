package outputcache

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bsv-blockchain/outputcache/errors"
)

type LocationKind int

const (
	LocationEphemeral LocationKind = iota
	LocationDurable
)

func (k LocationKind) String() string {
	switch k {
	case LocationDurable:
		return "durable"
	case LocationEphemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// EphemeralMarker is the location string that asks for an in-memory store.
const EphemeralMarker = ":memory:"

// Location says where a store keeps its data: on disk at a path, or in memory for
// the lifetime of the store.
type Location struct {
	kind LocationKind
	path string
}

// Durable is a file backed location. What lives at path (a file or a directory)
// depends on the backend.
func Durable(path string) Location {
	return Location{kind: LocationDurable, path: path}
}

func Ephemeral() Location {
	return Location{kind: LocationEphemeral}
}

func (l Location) Kind() LocationKind {
	return l.kind
}

func (l Location) IsDurable() bool {
	return l.kind == LocationDurable
}

// Path is empty for ephemeral locations.
func (l Location) Path() string {
	return l.path
}

func (l Location) String() string {
	if l.kind == LocationEphemeral {
		return EphemeralMarker
	}

	return l.path
}

// ParseLocation turns a location string into a Location. ":memory:" is ephemeral,
// anything else is a durable path.
func ParseLocation(s string) (Location, error) {
	switch s {
	case "":
		return Location{}, errors.NewConfigurationError("empty output cache location")
	case EphemeralMarker:
		return Ephemeral(), nil
	default:
		return Durable(s), nil
	}
}

// LocationFromURL derives the location named by a store URL. Schemes ending in
// "memory" are ephemeral. Otherwise the URL path without its leading slash names
// the store: relative names are resolved under dataFolder, absolute ones are kept.
func LocationFromURL(u *url.URL, dataFolder string) (Location, error) {
	if u == nil {
		return Location{}, errors.NewConfigurationError("missing output cache store URL")
	}

	if strings.HasSuffix(u.Scheme, "memory") {
		return Ephemeral(), nil
	}

	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return Location{}, errors.NewConfigurationError("store URL %q has no path", u.String())
	}

	if filepath.IsAbs(name) {
		return Durable(filepath.Clean(name)), nil
	}

	return Durable(filepath.Join(dataFolder, name)), nil
}
