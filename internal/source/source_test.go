package source

import (
	"testing"
)

func TestParseKind(t *testing.T) {
	for tag, want := range map[string]Kind{
		"pinned":             KindPinned,
		"aggregate-manifest": KindAggregateManifest,
		"sidecar":            KindSidecar,
		"registry-sidecar":   KindRegistrySidecar,
		"vendor-page":        KindVendorPage,
		"Vendor-Page":        KindVendorPage,
	} {
		got, err := ParseKind(tag)
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", tag, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", tag, got, want)
		}
	}

	if _, err := ParseKind("carrier-pigeon"); err == nil {
		t.Error("expected ParseKind to reject unknown kinds")
	}
}

func TestForKindCoversEveryKind(t *testing.T) {
	deps := Deps{Client: testClient(), PinnedTablePath: "unused"}

	for _, k := range []Kind{
		KindPinned,
		KindAggregateManifest,
		KindSidecar,
		KindRegistrySidecar,
		KindVendorPage,
	} {
		src, err := ForKind(k, deps)
		if err != nil {
			t.Errorf("ForKind(%s) failed: %v", k, err)
			continue
		}
		if src.Kind() != k {
			t.Errorf("ForKind(%s).Kind() = %s", k, src.Kind())
		}
	}

	if _, err := ForKind(Kind("bogus"), deps); err == nil {
		t.Error("expected ForKind to reject unknown kinds")
	}
}
