package appinfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeHandle is a test double for a running-application handle.
type fakeHandle struct {
	url    string
	urlErr error
	id     string
	hasID  bool
}

func (h fakeHandle) BundleURL() (string, error) {
	if h.urlErr != nil {
		return "", h.urlErr
	}
	return h.url, nil
}

func (h fakeHandle) BundleIdentifier() (string, bool) {
	return h.id, h.hasID
}

// writeBundle creates a minimal .app bundle under dir and returns its path.
// versionKeys maps Info.plist keys to values; pass nil to skip the plist.
func writeBundle(t *testing.T, dir, name string, versionKeys map[string]string) string {
	t.Helper()

	bundlePath := filepath.Join(dir, name)
	if versionKeys == nil {
		if err := os.MkdirAll(bundlePath, 0755); err != nil {
			t.Fatalf("create bundle dir: %v", err)
		}
		return bundlePath
	}

	contents := filepath.Join(bundlePath, "Contents")
	if err := os.MkdirAll(contents, 0755); err != nil {
		t.Fatalf("create bundle contents: %v", err)
	}

	body := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
`
	for k, v := range versionKeys {
		body += fmt.Sprintf("\t<key>%s</key>\n\t<string>%s</string>\n", k, v)
	}
	body += "</dict>\n</plist>\n"

	if err := os.WriteFile(filepath.Join(contents, "Info.plist"), []byte(body), 0644); err != nil {
		t.Fatalf("write Info.plist: %v", err)
	}
	return bundlePath
}

func TestExtract_NilHandle(t *testing.T) {
	d := Extract(nil)

	if d.BundleID != nil {
		t.Errorf("BundleID = %q, want absent", *d.BundleID)
	}
	if d.Path != nil {
		t.Errorf("Path = %q, want absent", *d.Path)
	}
	if d.Version != "0" {
		t.Errorf("Version = %q, want %q", d.Version, "0")
	}
}

func TestExtract_FullIdentity(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeBundle(t, dir, "Foo.app", map[string]string{
		"CFBundleShortVersionString": "2.1",
	})

	d := Extract(fakeHandle{
		url:   bundlePath,
		id:    "com.example.foo",
		hasID: true,
	})

	if d.BundleID == nil || *d.BundleID != "com.example.foo" {
		t.Errorf("BundleID = %v, want com.example.foo", d.BundleID)
	}
	if d.Path == nil || *d.Path != bundlePath {
		t.Errorf("Path = %v, want %q", d.Path, bundlePath)
	}
	if d.Version != "2.1" {
		t.Errorf("Version = %q, want %q", d.Version, "2.1")
	}
}

func TestExtract_IdentifierFallsBackToBasename(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeBundle(t, dir, "Bar.app", nil)

	d := Extract(fakeHandle{url: bundlePath})

	if d.BundleID == nil || *d.BundleID != "Bar.app" {
		t.Errorf("BundleID = %v, want Bar.app", d.BundleID)
	}
	if d.Path == nil || *d.Path != bundlePath {
		t.Errorf("Path = %v, want %q", d.Path, bundlePath)
	}
	if d.Version != "0" {
		t.Errorf("Version = %q, want %q (no Info.plist)", d.Version, "0")
	}
}

func TestExtract_URLUnsupported(t *testing.T) {
	d := Extract(fakeHandle{
		urlErr: errors.New("capability not supported"),
		id:     "com.example.headless",
		hasID:  true,
	})

	if d.Path != nil {
		t.Errorf("Path = %q, want absent", *d.Path)
	}
	if d.BundleID == nil || *d.BundleID != "com.example.headless" {
		t.Errorf("BundleID = %v, want com.example.headless", d.BundleID)
	}
	// No path means no plist lookup: version stays at the default.
	if d.Version != "0" {
		t.Errorf("Version = %q, want %q", d.Version, "0")
	}
}

func TestExtract_NothingResolves(t *testing.T) {
	d := Extract(fakeHandle{urlErr: errors.New("unsupported")})

	if d.BundleID != nil || d.Path != nil {
		t.Errorf("descriptor = %+v, want all fields absent", d)
	}
	if d.Version != "0" {
		t.Errorf("Version = %q, want %q", d.Version, "0")
	}
}

func TestExtract_FileURL(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeBundle(t, dir, "Baz.app", map[string]string{
		"CFBundleVersion": "347",
	})

	d := Extract(fakeHandle{url: "file://" + bundlePath + "/"})

	if d.Path == nil || *d.Path != bundlePath {
		t.Errorf("Path = %v, want %q", d.Path, bundlePath)
	}
	if d.Version != "347" {
		t.Errorf("Version = %q, want %q (long version fallback)", d.Version, "347")
	}
}

func TestExtract_ShortVersionPreferred(t *testing.T) {
	dir := t.TempDir()
	bundlePath := writeBundle(t, dir, "Qux.app", map[string]string{
		"CFBundleShortVersionString": "5.0.2",
		"CFBundleVersion":            "5021",
	})

	d := Extract(fakeHandle{url: bundlePath, id: "com.example.qux", hasID: true})

	if d.Version != "5.0.2" {
		t.Errorf("Version = %q, want %q", d.Version, "5.0.2")
	}
}

func TestExtract_MalformedPlist(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "Broken.app")
	if err := os.MkdirAll(filepath.Join(bundlePath, "Contents"), 0755); err != nil {
		t.Fatalf("create bundle: %v", err)
	}
	plistPath := filepath.Join(bundlePath, "Contents", "Info.plist")
	if err := os.WriteFile(plistPath, []byte("not a plist"), 0644); err != nil {
		t.Fatalf("write plist: %v", err)
	}

	d := Extract(fakeHandle{url: bundlePath, id: "com.example.broken", hasID: true})

	if d.Version != "0" {
		t.Errorf("Version = %q, want %q for unreadable plist", d.Version, "0")
	}
}
