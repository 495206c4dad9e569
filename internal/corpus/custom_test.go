package corpus

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadCustom_MissingFile(t *testing.T) {
	topics, err := LoadCustom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topics != nil {
		t.Errorf("got %v, want nil", topics)
	}
}

func TestSaveAndLoadCustom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.toml")
	in := []Topic{
		{Subject: "mathematics", Name: "vectors", Keywords: []string{"vector", "dot product"}},
	}
	if err := SaveCustom(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadCustom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 1 || out[0].Name != "vectors" || !slices.Equal(out[0].Keywords, in[0].Keywords) {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestLoadCustom_RejectsIncompleteTopic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.toml")
	body := "[[topic]]\nsubject = \"science\"\nname = \"optics\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCustom(path); err == nil {
		t.Fatal("expected error for topic without keywords")
	}
}

func TestAddCustom_ReplacesSameTopic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.toml")
	if _, err := AddCustom(path, Topic{Subject: "Science", Name: "Optics", Keywords: []string{"lens"}}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	topics, err := AddCustom(path, Topic{Subject: "science", Name: "optics", Keywords: []string{"mirror", "lens"}})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("got %d topics, want 1", len(topics))
	}
	if !slices.Equal(topics[0].Keywords, []string{"mirror", "lens"}) {
		t.Errorf("keywords = %v", topics[0].Keywords)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topics.toml")
	c := Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, c, zerolog.Nop()) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := SaveCustom(path, []Topic{{Subject: "art", Name: "perspective", Keywords: []string{"vanishing point"}}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		got := c.Lookup("art", "perspective")
		if slices.Equal(got.Keywords, []string{"vanishing point"}) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("custom topic not reloaded, keywords = %v", got.Keywords)
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
