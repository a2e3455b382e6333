// Package gallery exposes the read-only directory of preset images the user
// can pick from. Images live in one subdirectory per category.
package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"reelgen/internal/domain"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Category is one subdirectory of preset images.
type Category struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

// Library scans and serves the preset image directory.
type Library struct {
	baseDir string
}

// NewLibrary validates that the preset directory exists and returns a Library
// rooted at it.
func NewLibrary(dir string) (*Library, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("gallery: images directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("gallery: %s is not a directory", dir)
	}
	return &Library{baseDir: dir}, nil
}

// Categories lists every category and its image files, sorted. The directory
// is rescanned on each call so newly dropped presets show up without a
// restart.
func (l *Library) Categories() ([]Category, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("gallery: read images directory: %w", err)
	}

	var categories []Category
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		images, err := l.listImages(entry.Name())
		if err != nil {
			return nil, err
		}
		if len(images) == 0 {
			continue
		}
		categories = append(categories, Category{Name: entry.Name(), Images: images})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (l *Library) listImages(category string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.baseDir, category))
	if err != nil {
		return nil, fmt.Errorf("gallery: read category %s: %w", category, err)
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowedExtensions[ext]; !ok {
			continue
		}
		images = append(images, entry.Name())
	}
	sort.Strings(images)
	return images, nil
}

// Path resolves a category/name pair to an absolute file path, rejecting
// traversal attempts and unknown files.
func (l *Library) Path(category, name string) (string, error) {
	if err := validComponent(category); err != nil {
		return "", err
	}
	if err := validComponent(name); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("gallery: %q: unsupported image type: %w", name, domain.ErrInvalidInput)
	}
	path := filepath.Join(l.baseDir, category, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("gallery: image %s/%s: %w", category, name, domain.ErrNotFound)
	}
	return path, nil
}

// Load reads an image by its "category/name" reference, the form job records
// use.
func (l *Library) Load(ref string) ([]byte, error) {
	category, name, ok := strings.Cut(ref, "/")
	if !ok {
		return nil, fmt.Errorf("gallery: malformed image reference %q: %w", ref, domain.ErrInvalidInput)
	}
	path, err := l.Path(category, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gallery: read %s: %w", ref, err)
	}
	return data, nil
}

func validComponent(part string) error {
	if part == "" || part == "." || part == ".." ||
		strings.ContainsAny(part, `/\`) {
		return fmt.Errorf("gallery: invalid path component %q: %w", part, domain.ErrInvalidInput)
	}
	return nil
}
