package mojibake

import "testing"

func TestScoreCountsMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"clean ascii", "John Doe +49 151", 0},
		{"clean umlauts", "Größe, München", 0},
		{"single A-tilde", "MÃ¼ller", 1},
		{"A-circumflex", "Â 12345", 1},
		{"replacement char", "bro�en", 1},
		{"smart punctuation", "donâ€™t", 1},
		{"mixed", "Ã¤ Â â€œquoteâ€�", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.text); got != tt.want {
				t.Fatalf("Score(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestDamaged(t *testing.T) {
	if Damaged("Müller") {
		t.Fatal("expected clean text to report undamaged")
	}
	if !Damaged("MÃ¼ller") {
		t.Fatal("expected corrupted text to report damaged")
	}
}
