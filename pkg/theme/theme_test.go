package theme

import (
	"reflect"
	"testing"
)

func TestResolveDefault(t *testing.T) {
	r := Resolve("", nil, nil)

	if r.Name != DefaultName {
		t.Errorf("Name = %q, want %q", r.Name, DefaultName)
	}
	if r.FellBack {
		t.Error("empty theme name is not a fallback")
	}
	if got := r.Var(VarPrimaryColor); got != "#f8fafc" {
		t.Errorf("primaryColor = %q", got)
	}
	if got := r.Classes["primary"].Stroke; got != "#1976D2" {
		t.Errorf("primary stroke = %q", got)
	}
}

func TestResolveNamedTheme(t *testing.T) {
	r := Resolve("dark", nil, nil)

	if r.Var(VarPrimaryColor) != "#1a1a1a" {
		t.Errorf("dark primaryColor = %q", r.Var(VarPrimaryColor))
	}
	if r.Classes["accent"].Fill != "#451a03" {
		t.Errorf("dark accent fill = %q", r.Classes["accent"].Fill)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	if !reflect.DeepEqual(Resolve("Forest", nil, nil), Resolve("forest", nil, nil)) {
		t.Error("theme lookup should be case-insensitive")
	}
}

func TestResolveUnknownThemeFallsBack(t *testing.T) {
	r := Resolve("solarized", nil, nil)

	if r.Name != DefaultName {
		t.Errorf("Name = %q, want default", r.Name)
	}
	if !r.FellBack {
		t.Error("unknown theme should report fallback")
	}
	if !reflect.DeepEqual(r.Variables, Resolve("", nil, nil).Variables) {
		t.Error("unknown theme should resolve to the default palette")
	}
}

func TestOverridesWinOverTheme(t *testing.T) {
	r := Resolve("blue", map[string]string{
		VarLineColor: "#000000",
	}, nil)

	if r.Var(VarLineColor) != "#000000" {
		t.Errorf("lineColor = %q, want override", r.Var(VarLineColor))
	}
	// Untouched keys keep the theme value.
	if r.Var(VarPrimaryColor) != "#eff6ff" {
		t.Errorf("primaryColor = %q, want theme value", r.Var(VarPrimaryColor))
	}
}

func TestEmptyOverrideValueApplied(t *testing.T) {
	// Any key present in the override map wins, even when its value is
	// empty. Clearing a variable is a legitimate override.
	r := Resolve("blue", map[string]string{VarLineColor: ""}, nil)
	if got := r.Var(VarLineColor); got != "" {
		t.Errorf("empty override should clear the variable, got %q", got)
	}
}

func TestClassOverridePartial(t *testing.T) {
	r := Resolve("green", nil, map[string]Override{
		"primary": {Fill: "#123456"},
	})

	got := r.Classes["primary"]
	if got.Fill != "#123456" {
		t.Errorf("fill = %q, want override", got.Fill)
	}
	if got.Stroke != "#16a34a" {
		t.Errorf("stroke = %q, want theme default preserved", got.Stroke)
	}
	// Other classes remain untouched.
	if r.Classes["muted"] != (ClassStyle{Fill: "#f1f5f9", Stroke: "#94a3b8"}) {
		t.Errorf("muted = %+v", r.Classes["muted"])
	}
}

func TestClassOverrideForUnlistedClassIgnored(t *testing.T) {
	r := Resolve("dark", nil, map[string]Override{
		"danger": {Fill: "#ff0000", Stroke: "#aa0000"},
	})
	if _, ok := r.Classes["danger"]; ok {
		t.Error("overrides cannot introduce classes the theme does not define")
	}
}

func TestResolveDeterministic(t *testing.T) {
	overrides := map[string]string{VarFontFamily: "Pretendard"}
	classOverrides := map[string]Override{"accent": {Stroke: "#111111"}}

	a := Resolve("purple", overrides, classOverrides)
	b := Resolve("purple", overrides, classOverrides)
	if !reflect.DeepEqual(a, b) {
		t.Error("Resolve must be deterministic for identical inputs")
	}
}

func TestResolveDoesNotAliasInputs(t *testing.T) {
	overrides := map[string]string{VarLineColor: "#101010"}
	r := Resolve("dark", overrides, nil)

	overrides[VarLineColor] = "#999999"
	if r.Var(VarLineColor) != "#101010" {
		t.Error("Resolved must copy override maps, not alias them")
	}
}

func TestKnown(t *testing.T) {
	for _, name := range []string{"dark", "light", "blue", "green", "purple", "forest", "neutral", "base", "default"} {
		if !Known(name) {
			t.Errorf("Known(%q) = false", name)
		}
	}
	if Known("solarized") {
		t.Error("Known should reject unrecognized names")
	}
}
