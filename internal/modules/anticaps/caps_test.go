package anticaps

import "testing"

func TestExceeds(t *testing.T) {
	cases := []struct {
		name      string
		content   string
		threshold float64
		want      bool
	}{
		{name: "twelve chars eighty percent", content: "ABCDEFGHij!!", threshold: 70, want: true},
		{name: "nine chars all caps below floor", content: "ABCDEFGHI", threshold: 70, want: false},
		{name: "exactly at threshold", content: "ABCDEFGhij", threshold: 70, want: false},
		{name: "no letters", content: "1234567890!!", threshold: 0, want: false},
		{name: "lowercase sentence", content: "hello there friends", threshold: 70, want: false},
		{name: "non ascii uppercase", content: "ÉÉÉÉÉÉÉÉÉÉ", threshold: 70, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Exceeds(tc.content, tc.threshold, DefaultMinLength); got != tc.want {
				t.Fatalf("Exceeds(%q, %v) = %v, want %v", tc.content, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestPercentageCountsLettersOnly(t *testing.T) {
	pct, letters := Percentage("AB cd 12!")
	if letters != 4 || pct != 50 {
		t.Fatalf("expected 50%% of 4 letters, got %v of %d", pct, letters)
	}
}
