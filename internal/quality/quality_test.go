package quality

import "testing"

func TestForJPEGAndCompressInvariant(t *testing.T) {
	for l := Highest; l <= Lowest; l++ {
		p := For(l)
		if p.CompressLevel != 9 {
			t.Fatalf("level %v: compress level = %d, want 9", l, p.CompressLevel)
		}
		wantJPEG := l != Highest
		if p.JPEGEnabled != wantJPEG {
			t.Fatalf("level %v: jpegEnabled = %v, want %v", l, p.JPEGEnabled, wantJPEG)
		}
	}
}

func TestForEncodings(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{Highest, losslessEncodings},
		{High, lossyEncodings},
		{Medium, lossyEncodings},
		{Low, lossyEncodings},
		{Lowest, lossyEncodings},
	}
	for _, c := range cases {
		if got := For(c.level).Encodings; got != c.want {
			t.Errorf("For(%v).Encodings = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestForQualityLevels(t *testing.T) {
	cases := map[Level]int{
		Highest: 9,
		High:    7,
		Medium:  5,
		Low:     3,
		Lowest:  0,
	}
	for l, want := range cases {
		if got := For(l).QualityLevel; got != want {
			t.Errorf("For(%v).QualityLevel = %d, want %d", l, got, want)
		}
	}
}
