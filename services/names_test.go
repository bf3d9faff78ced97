package services

import "testing"

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mike trout", "Mike Trout"},
		{"DE'AARON FOX", "De'Aaron Fox"},
		{"shaquille o'neal's", "Shaquille O'Neal's"},
		{"connor mcdavid", "Connor McDavid"},
		{"jaxon smith-njigba", "Jaxon Smith-Njigba"},
		{"DK metcalf", "DK Metcalf"},
		{"AJ brown", "AJ Brown"},
		{"AL kaline", "Al Kaline"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ken griffey jr", "Ken Griffey Jr."},
		{"Ronald Acuna Jr", "Ronald Acuna Jr."},
		{"cal ripken sr.", "Cal Ripken Sr."},
		{"bobby witt iii", "Bobby Witt III"},
		{"jr smith", "Jr Smith"},
	}

	for _, tt := range tests {
		if got := FormatName(tt.in); got != tt.want {
			t.Errorf("FormatName(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
