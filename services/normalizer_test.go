package services

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024 Topps Chrome  J.R.  Smith #15 /99 PSA 10", "2024 Topps Chrome JR Smith #15 /99 PSA 10"},
		{"J.R.Smith Topps", "JR Smith Topps"},
		{"j.r.smith Topps", "JR smith Topps"},
		{"C.J.Stroud Prizm", "CJ Stroud Prizm"},
		{"A.J.B. Card", "AJB Card"},
		{"Ken Griffey Jr. 1989 Upper Deck", "Ken Griffey Jr. 1989 Upper Deck"},
		{"Ronald Acuña Jr. RC", "Ronald Acuna Jr. RC"},
		{"Pokémon Charizard", "Pokemon Charizard"},
		{"De’Aaron  Fox\tOptic", "De'Aaron Fox Optic"},
		{"2023–24 Prizm", "2023-24 Prizm"},
		{"  ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.raw); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeTitleIsIdempotent(t *testing.T) {
	titles := []string{
		"2024 Topps Chrome  J.R.  Smith #15 /99 PSA 10",
		"C.J.Stroud Prizm Silver",
		"Ronald Acuña Jr. 2018 Topps Update #US250",
	}
	for _, title := range titles {
		once := NormalizeTitle(title)
		if twice := NormalizeTitle(once); twice != once {
			t.Errorf("NormalizeTitle(NormalizeTitle(%q)) = %q; want %q", title, twice, once)
		}
	}
}
