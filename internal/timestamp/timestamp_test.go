package timestamp

import (
	"errors"
	"math"
	"testing"
)

func TestHuman(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{1.9, "0:00:01"},
		{125, "0:02:05"},
		{3665, "1:01:05"},
		{36000, "10:00:00"},
	}

	for _, tt := range tests {
		got := Human(tt.seconds)
		if got != tt.want {
			t.Errorf("Human(%f) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSRTAndVTT(t *testing.T) {
	tests := []struct {
		seconds float64
		srt     string
		vtt     string
	}{
		{0, "00:00:00,000", "00:00:00.000"},
		{1.5, "00:00:01,500", "00:00:01.500"},
		{3600, "01:00:00,000", "01:00:00.000"},
		{3665.5, "01:01:05,500", "01:01:05.500"},
		{7200.25, "02:00:00,250", "02:00:00.250"},
		{1.9999, "00:00:01,999", "00:00:01.999"},
	}

	for _, tt := range tests {
		if got := SRT(tt.seconds); got != tt.srt {
			t.Errorf("SRT(%f) = %q, want %q", tt.seconds, got, tt.srt)
		}
		if got := VTT(tt.seconds); got != tt.vtt {
			t.Errorf("VTT(%f) = %q, want %q", tt.seconds, got, tt.vtt)
		}
	}
}

func TestParseHuman(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0:00:05", 5},
		{"0:02:05", 125},
		{"1:01:05", 3665},
		{"10:00:00", 36000},
	}

	for _, tt := range tests {
		got, err := ParseHuman(tt.in)
		if err != nil {
			t.Fatalf("ParseHuman(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHuman(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseHuman_Malformed(t *testing.T) {
	for _, in := range []string{"", "12", "01:02", "a:b:c"} {
		_, err := ParseHuman(in)
		if err == nil {
			t.Errorf("ParseHuman(%q) expected error", in)
			continue
		}
		if !errors.Is(err, ErrFormat) {
			t.Errorf("ParseHuman(%q) error %v does not match ErrFormat", in, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Input != in {
			t.Errorf("ParseHuman(%q) error is not a *FormatError for the input: %v", in, err)
		}
	}
}

func TestHumanRoundTrip(t *testing.T) {
	for _, s := range []float64{0, 0.4, 59.99, 61, 3599.5, 3665, 86399.9, 123456.7} {
		got, err := ParseHuman(Human(s))
		if err != nil {
			t.Fatalf("round trip %f: %v", s, err)
		}
		if want := int(math.Floor(s)); got != want {
			t.Errorf("ParseHuman(Human(%f)) = %d, want %d", s, got, want)
		}
	}
}
