package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultFile = "messages.en.yaml"

//go:embed messages.en.yaml
var defaultFiles embed.FS

var ErrTemplateNotFound = errors.New("template not found")

// Catalog holds user-visible message templates keyed by dotted paths, e.g. "errors.NOT_FOUND".
type Catalog struct {
	mu   sync.RWMutex
	data map[string]string
}

// New loads the embedded messages and applies the yaml files of overrideDir on top.
func New(overrideDir string) (*Catalog, error) {
	catalog := &Catalog{data: make(map[string]string)}

	raw, err := fs.ReadFile(defaultFiles, defaultFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded messages: %w", err)
	}

	if err = catalog.apply(raw); err != nil {
		return nil, fmt.Errorf("failed to parse embedded messages: %w", err)
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err = catalog.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}

	return catalog, nil
}

// Render executes the template stored under key. Missing data keys are errors.
func (that *Catalog) Render(key string, data any) (string, error) {
	that.mu.RLock()
	text, ok := that.data[key]
	that.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}

	tpl, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", key, err)
	}

	var builder strings.Builder
	if err = tpl.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", key, err)
	}

	return builder.String(), nil
}

// ErrorMessage renders the message for an apperror code, falling back to the INTERNAL one.
func (that *Catalog) ErrorMessage(code string, data any) string {
	if message, err := that.Render("errors."+code, data); err == nil {
		return message
	}

	if message, err := that.Render("errors.INTERNAL", nil); err == nil {
		return message
	}

	return code
}

func (that *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read messages dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		if err = that.apply(raw); err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
	}

	return nil
}

func (that *Catalog) apply(raw []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}

	flat := make(map[string]string)
	if err := flatten(tree, "", flat); err != nil {
		return err
	}

	that.mu.Lock()
	for key, value := range flat {
		that.data[key] = value
	}
	that.mu.Unlock()

	return nil
}

func flatten(src any, prefix string, out map[string]string) error {
	switch value := src.(type) {
	case map[string]any:
		for key, child := range value {
			if prefix != "" {
				key = prefix + "." + key
			}

			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without a key")
		}
		out[prefix] = value
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, value)
	}
}
