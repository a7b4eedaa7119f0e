// Package languages lists the source languages the editor knows about.
package languages

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language describes one supported source language.
type Language struct {
	ID          string
	Name        string
	Extension   string
	DefaultCode string
}

var registry = map[string]Language{
	"javascript": {
		ID:          "javascript",
		Name:        "JavaScript",
		Extension:   ".js",
		DefaultCode: `console.log("Hello World!");`,
	},
	"python": {
		ID:          "python",
		Name:        "Python",
		Extension:   ".py",
		DefaultCode: `print("Hello World!")`,
	},
	"java": {
		ID:        "java",
		Name:      "Java",
		Extension: ".java",
		DefaultCode: `public class Main {
  public static void main(String[] args) {
    System.out.println("Hello World!");
  }
}`,
	},
	"cpp": {
		ID:        "cpp",
		Name:      "C++",
		Extension: ".cpp",
		DefaultCode: `#include <iostream>
using namespace std;

int main() {
    cout << "Hello World!" << endl;
    return 0;
}`,
	},
}

// DefaultID is the language new buffers start in.
const DefaultID = "javascript"

// Default returns the default language.
func Default() Language { return registry[DefaultID] }

// Lookup finds a language by id, case-insensitively.
func Lookup(id string) (Language, bool) {
	lang, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	return lang, ok
}

// ForExtension finds a language by file extension, with or without the dot.
func ForExtension(ext string) (Language, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, lang := range registry {
		if lang.Extension == ext {
			return lang, true
		}
	}
	return Language{}, false
}

// ForPath detects the language of a file from its extension.
func ForPath(path string) (Language, bool) {
	return ForExtension(filepath.Ext(path))
}

// All returns every language sorted by id.
func All() []Language {
	out := make([]Language, 0, len(registry))
	for _, lang := range registry {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
