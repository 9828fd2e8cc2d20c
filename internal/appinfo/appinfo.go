// Package appinfo derives a best-effort application identity (bundle id,
// bundle path, version) from an opaque running-application handle.
//
// Every lookup in the chain is allowed to fail; a failure degrades the
// corresponding field to absent (or the version to "0") instead of aborting.
// Partial identity is always preferable to dropping the event that carried
// the handle.
package appinfo

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

// DefaultVersion is recorded when no version can be resolved for an app.
const DefaultVersion = "0"

// Handle is an opaque reference to a running application as delivered by the
// platform notification payload. Either capability may be unavailable for a
// given process (e.g. non-bundled executables).
type Handle interface {
	// BundleURL returns the application bundle location. It returns an
	// error when the handle does not support the capability.
	BundleURL() (string, error)

	// BundleIdentifier returns the application's declared identifier and
	// whether one was declared at all.
	BundleIdentifier() (string, bool)
}

// Descriptor is the resolved identity of one application at one point in
// time. BundleID and Path are nil when they could not be resolved; Version is
// always populated, defaulting to "0".
type Descriptor struct {
	BundleID *string `json:"bundle_id,omitempty"`
	Path     *string `json:"path,omitempty"`
	Version  string  `json:"version"`
}

// Extract resolves a fresh Descriptor for the given handle. Descriptors are
// never cached: two notifications about the same application each re-derive
// their own identity, so an app updated between launch and quit reports the
// version that was on disk at each event.
//
// Extract never panics and never returns an error; unresolvable fields stay
// absent.
func Extract(h Handle) Descriptor {
	d := Descriptor{Version: DefaultVersion}
	if h == nil {
		return d
	}

	if raw, err := h.BundleURL(); err == nil {
		if p := pathFromURL(raw); p != "" {
			d.Path = &p
		}
	}

	if id, ok := h.BundleIdentifier(); ok && id != "" {
		d.BundleID = &id
	} else if d.Path != nil {
		// Fall back to the base filename of the bundle, e.g.
		// "/Applications/Bar.app" -> "Bar.app".
		base := filepath.Base(*d.Path)
		d.BundleID = &base
	}

	// Version lookup needs the bundle on disk; without a path it stays at
	// the default rather than being treated as an error.
	if d.Path != nil {
		d.Version = bundleVersion(*d.Path)
	}

	return d
}

// pathFromURL converts a bundle URL to a filesystem path. Plain paths are
// passed through so handles may report either form. Returns "" when no path
// can be derived.
func pathFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "file" || u.Path == "" {
			return ""
		}
		raw = u.Path
	}
	// Bundle URLs carry a trailing slash for directories.
	if len(raw) > 1 {
		raw = strings.TrimRight(raw, "/")
	}
	return raw
}

// bundleVersion reads the version out of the bundle's Info.plist, preferring
// the short (marketing) version string over the build version. Any failure,
// including a missing or unreadable plist, yields DefaultVersion.
func bundleVersion(bundlePath string) string {
	f, err := os.Open(filepath.Join(bundlePath, "Contents", "Info.plist"))
	if err != nil {
		return DefaultVersion
	}
	defer f.Close()

	var info struct {
		ShortVersion string `plist:"CFBundleShortVersionString"`
		BuildVersion string `plist:"CFBundleVersion"`
	}
	if err := plist.NewDecoder(f).Decode(&info); err != nil {
		return DefaultVersion
	}

	switch {
	case info.ShortVersion != "":
		return info.ShortVersion
	case info.BuildVersion != "":
		return info.BuildVersion
	default:
		return DefaultVersion
	}
}
