package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// customFile is the on-disk layout of the custom topics file:
//
//	[[topic]]
//	subject = "mathematics"
//	name = "vectors"
//	keywords = ["vector", "magnitude", "dot product"]
type customFile struct {
	Topics []Topic `toml:"topic"`
}

// LoadCustom reads custom topics from a TOML file. A missing file yields
// no topics and no error.
func LoadCustom(path string) ([]Topic, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var f customFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode custom topics %s: %w", path, err)
	}

	for i, t := range f.Topics {
		if t.Subject == "" || t.Name == "" {
			return nil, fmt.Errorf("custom topic #%d: subject and name are required", i+1)
		}
		if len(t.Keywords) == 0 {
			return nil, fmt.Errorf("custom topic %q: at least one keyword is required", t.Name)
		}
	}
	return f.Topics, nil
}

// SaveCustom writes topics to path, replacing the file atomically.
func SaveCustom(path string, topics []Topic) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create topics dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".topics-*.toml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(customFile{Topics: topics}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode custom topics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// AddCustom adds t to the custom topics file at path, replacing any topic
// with the same subject and name. It returns the resulting topic list.
func AddCustom(path string, t Topic) ([]Topic, error) {
	topics, err := LoadCustom(path)
	if err != nil {
		return nil, err
	}

	t = normalizeTopicEntry(t)
	replaced := false
	for i, existing := range topics {
		e := normalizeTopicEntry(existing)
		if e.Subject == t.Subject && e.Name == t.Name {
			topics[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		topics = append(topics, t)
	}

	if err := SaveCustom(path, topics); err != nil {
		return nil, err
	}
	return topics, nil
}
