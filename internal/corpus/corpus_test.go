package corpus

import (
	"slices"
	"testing"
)

func TestLookup_ExactTopic(t *testing.T) {
	c := Default()
	got := c.Lookup("Mathematics", "Quadratic Equations")
	if got.Name != "quadratic equations" {
		t.Fatalf("name = %q, want %q", got.Name, "quadratic equations")
	}
	if !slices.Contains(got.Keywords, "quadratic formula") {
		t.Errorf("keywords missing %q", "quadratic formula")
	}
	if !slices.Contains(got.Keywords, "discriminant") {
		t.Errorf("keywords missing %q", "discriminant")
	}
}

func TestLookup_SubstringMatch(t *testing.T) {
	c := Default()
	got := c.Lookup("science", "Newton's laws")
	// "newton's laws" does not contain "newton laws", so this falls back to
	// the subject union, which still carries newton keywords.
	if !slices.Contains(got.Keywords, "inertia") {
		t.Errorf("keywords missing %q", "inertia")
	}

	got = c.Lookup("mathematics", "intro to calculus")
	if got.Name != "calculus" {
		t.Errorf("name = %q, want %q", got.Name, "calculus")
	}
}

func TestLookup_UnknownTopicUsesSubjectUnion(t *testing.T) {
	c := Default()
	got := c.Lookup("geography", "plate tectonics")
	if got.Subject != "geography" {
		t.Fatalf("subject = %q, want geography", got.Subject)
	}
	for _, kw := range []string{"monsoon", "plateau", "latitude"} {
		if !slices.Contains(got.Keywords, kw) {
			t.Errorf("union missing %q", kw)
		}
	}
}

func TestLookup_UnknownSubjectSearchesAll(t *testing.T) {
	c := Default()
	got := c.Lookup("physics", "electricity")
	if got.Subject != "science" || got.Name != "electricity" {
		t.Fatalf("got %s/%s, want science/electricity", got.Subject, got.Name)
	}
}

func TestLookup_DerivesKeywordsFromName(t *testing.T) {
	c := Default()
	got := c.Lookup("music", "western harmony basics")
	want := []string{"western", "harmony", "basics"}
	if !slices.Equal(got.Keywords, want) {
		t.Errorf("keywords = %v, want %v", got.Keywords, want)
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := Default()
	got := c.Lookup("mathematics", "matrices")
	got.Keywords[0] = "mutated"
	again := c.Lookup("mathematics", "matrices")
	if again.Keywords[0] == "mutated" {
		t.Error("Lookup returned a shared slice")
	}
}

func TestSetCustom_ShadowsAndRestores(t *testing.T) {
	c := Default()
	c.SetCustom([]Topic{{Subject: "Mathematics", Name: "Matrices", Keywords: []string{"Tensor", "tensor"}}})

	got := c.Lookup("mathematics", "matrices")
	if !slices.Equal(got.Keywords, []string{"tensor"}) {
		t.Fatalf("custom keywords = %v, want [tensor]", got.Keywords)
	}

	c.SetCustom(nil)
	got = c.Lookup("mathematics", "matrices")
	if !slices.Contains(got.Keywords, "determinant") {
		t.Errorf("seed topic not restored: %v", got.Keywords)
	}
}

func TestSubjectsAndTopics(t *testing.T) {
	c := Default()
	subjects := c.Subjects()
	if !slices.IsSorted(subjects) {
		t.Errorf("subjects not sorted: %v", subjects)
	}
	if !slices.Contains(subjects, "computer_science") {
		t.Errorf("subjects missing computer_science: %v", subjects)
	}
	if n := len(c.Topics("Computer Science")); n != 4 {
		t.Errorf("computer science topics = %d, want 4", n)
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Computer Science", "computer_science"},
		{"  mathematics ", "mathematics"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSubject(tt.in); got != tt.want {
			t.Errorf("NormalizeSubject(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
