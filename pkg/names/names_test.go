package names

import "testing"

func TestShortName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"|root|spine|chest", "chest"},
		{"chest", "chest"},
		{"root|", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ShortName(tt.in); got != tt.want {
			t.Errorf("ShortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	// "é" decomposed (e + combining acute) normalizes to the composed rune.
	decomposed := "cle\u0301"
	if got := Normalize(decomposed); got != "cl\u00e9" {
		t.Errorf("expected NFC form, got %q", got)
	}
	if got := Normalize("  root\\arm "); got != "root|arm" {
		t.Errorf("expected separators converted and trimmed, got %q", got)
	}
}

func TestResolver(t *testing.T) {
	scene := map[string]bool{"|rig|arm_L": true, "leg_L": true}
	r := Resolver{
		Exists: func(name string) bool { return scene[name] },
		Find: func(short string) []string {
			var out []string
			for name := range scene {
				if ShortName(name) == short {
					out = append(out, name)
				}
			}
			return out
		},
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"leg_L", "leg_L", true},
		{"|old|arm_L", "|rig|arm_L", true},
		{"|rig|arm_L", "|rig|arm_L", true},
		{"head", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
