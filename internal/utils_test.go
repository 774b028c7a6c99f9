package internal

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pascal-to-csharp.cs", "pascal-to-csharp.cs"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"my program.cs", "my_program.cs"},
		{"  spaced.cs  ", "spaced.cs"},
		{"програма.cs", "програма.cs"},
		{"", "_"},
		{"..", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
