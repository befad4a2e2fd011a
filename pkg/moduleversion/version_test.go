package moduleversion

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Version
		wantErr bool
	}{
		{name: "full", raw: "20.0.3613.0", want: Version{20, 0, 3613, 0}},
		{name: "partial defaults trailing to zero", raw: "1.8.5", want: Version{1, 8, 5, 0}},
		{name: "empty is zero", raw: "", want: Zero},
		{name: "too many components", raw: "1.2.3.4.5", wantErr: true},
		{name: "non numeric", raw: "1.x.0.0", wantErr: true},
		{name: "negative", raw: "1.-2.0.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	v := Version{Major: 1, Minor: 2, Build: 3, Revision: 4}
	if got := v.String(); got != "1.2.3.4" {
		t.Errorf("String() = %q, want %q", got, "1.2.3.4")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{MustParse("1.0.0.0"), MustParse("1.0.0.0"), 0},
		{MustParse("1.0.0.0"), MustParse("2.0.0.0"), -1},
		{MustParse("2.0.0.0"), MustParse("1.0.0.0"), 1},
		{MustParse("1.2.0.0"), MustParse("1.1.9.9"), 1},
		{MustParse("1.0.0.1"), MustParse("1.0.0.0"), 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestInRange(t *testing.T) {
	min, max := MustParse("1.0.0.0"), MustParse("9.0.0.0")
	if InRange(MustParse("0.9.0.0"), min, max) {
		t.Error("0.9.0.0 should not be in range [1.0, 9.0]")
	}
	if !InRange(MustParse("5.0.0.0"), min, max) {
		t.Error("5.0.0.0 should be in range [1.0, 9.0]")
	}
	if !InRange(min, min, max) || !InRange(max, min, max) {
		t.Error("range bounds should be inclusive")
	}
}
