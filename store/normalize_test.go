package store

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"050-1234567", "0501234567"},
		{"(054) 789-0123", "0547890123"},
		{"+972 52 234 5678", "972522345678"},
		{"0501234567", "0501234567"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeBranch(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Main Street", "mainstreet"},
		{"main-street", "mainstreet"},
		{"MAIN_STREET", "mainstreet"},
		{"  Downtown ", "downtown"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeBranch(c.in); got != c.want {
			t.Errorf("NormalizeBranch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  David.Cohen@Email.COM "); got != "david.cohen@email.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeEmail(""); got != "" {
		t.Errorf("NormalizeEmail(empty) = %q", got)
	}
}

func TestNormalizeText(t *testing.T) {
	if got := NormalizeText("  hello   world \n"); got != "hello world" {
		t.Errorf("NormalizeText = %q", got)
	}
	if got := NormalizeText("אבי  פרץ"); got != "אבי פרץ" {
		t.Errorf("NormalizeText hebrew = %q", got)
	}
}
