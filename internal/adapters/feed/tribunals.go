package feed

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/example/encheres/internal/ports/primary"
)

// tribunalFile is the registry file layout:
//
//	tribunals:
//	  - name: Tribunal Judiciaire de Paris
//	    slug: tj-paris
//	    region: Île-de-France
type tribunalFile struct {
	Tribunals []primary.RegisterTribunalRequest `yaml:"tribunals"`
}

// DecodeTribunals reads a tribunal registry file.
func DecodeTribunals(r io.Reader) ([]primary.RegisterTribunalRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f tribunalFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse tribunal file: %w", err)
	}
	for i, t := range f.Tribunals {
		if t.Slug == "" || t.Name == "" {
			return nil, fmt.Errorf("tribunal entry %d: name and slug are required", i+1)
		}
	}
	return f.Tribunals, nil
}
