// Package librarian manages model metadata libraries: the records that map
// a model name to its asset bundle URL, default scale, and category. A
// library is a JSON file; directories of libraries can be hot reloaded.
package librarian

import (
	"fmt"
	"runtime"
)

// ModelRecord is the metadata for one model.
type ModelRecord struct {
	// Name uniquely identifies the model within its library.
	Name string `json:"name"`
	// URLs maps a platform ("linux", "darwin", "windows") to the model's
	// asset bundle URL.
	URLs map[string]string `json:"urls"`
	// ScaleFactor converts the asset to meters.
	ScaleFactor float64 `json:"scale_factor"`
	// WCategory is the WordNet category of the model.
	WCategory string `json:"wcategory"`
	// DoNotUse flags a broken asset.
	DoNotUse bool `json:"do_not_use"`
	// Description of the model.
	Description string `json:"description,omitempty"`
}

// URL returns the asset bundle URL for the current platform.
func (r *ModelRecord) URL() (string, error) {
	return r.URLForPlatform(runtime.GOOS)
}

// URLForPlatform returns the asset bundle URL for the given platform.
func (r *ModelRecord) URLForPlatform(platform string) (string, error) {
	if url, ok := r.URLs[platform]; ok {
		return url, nil
	}
	return "", fmt.Errorf("model %q has no asset bundle for %s", r.Name, platform)
}

// Validate checks the record's required fields.
func (r *ModelRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("record has no name")
	}
	if len(r.URLs) == 0 {
		return fmt.Errorf("model %q has no asset bundle URLs", r.Name)
	}
	if r.ScaleFactor <= 0 {
		return fmt.Errorf("model %q has scale factor %v", r.Name, r.ScaleFactor)
	}
	return nil
}

// Library is one model library file.
type Library struct {
	// Description of the library.
	Description string `json:"description"`
	// Records in the library.
	Records []*ModelRecord `json:"records"`
}
