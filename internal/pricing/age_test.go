package pricing

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeAtBirthIsZero(t *testing.T) {
	birth := date(2019, time.March, 12)
	if age := AgeAt(birth, birth); age != 0 {
		t.Fatalf("expected age 0 at birth, got %v", age)
	}
}

func TestAgeAtDayOfMonthRule(t *testing.T) {
	birth := date(2000, time.June, 15)
	cases := []struct {
		ref  time.Time
		want float64
	}{
		{date(2008, time.June, 10), 7.9},
		{date(2008, time.June, 15), 8.0},
		{date(2008, time.June, 16), 8.0},
		{date(2008, time.July, 20), 8.1},
		{date(2009, time.May, 14), 8.8},
	}
	for _, tc := range cases {
		if got := AgeAt(birth, tc.ref); got != tc.want {
			t.Fatalf("AgeAt(%s) = %v, want %v", tc.ref.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestAgeAtMonotonic(t *testing.T) {
	birth := date(2018, time.November, 30)
	prev := float64(-1)
	ref := date(2019, time.January, 1)
	for i := 0; i < 900; i++ {
		age := AgeAt(birth, ref)
		if age < prev {
			t.Fatalf("age decreased from %v to %v at %s", prev, age, ref.Format("2006-01-02"))
		}
		prev = age
		ref = ref.AddDate(0, 0, 1)
	}
}

func TestEligibleBounds(t *testing.T) {
	cases := []struct {
		age  float64
		want bool
	}{
		{5.9, false},
		{6.0, true},
		{8.9, true},
		{9.0, true},
		{9.1, false},
	}
	for _, tc := range cases {
		if got := Eligible(tc.age, 6, 8); got != tc.want {
			t.Fatalf("Eligible(%v, 6, 8) = %v, want %v", tc.age, got, tc.want)
		}
	}
}
