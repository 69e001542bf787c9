package seeder

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML fixture format:
//
//	archives:
//	  - file_number: CW-2023-001
//	    title: 2023年度财务报表
//	    category: 财务
//	    status: 可用
//	    created_at: 2023-03-15
type Catalog struct {
	Archives []Entry `yaml:"archives"`
}

// LoadCatalog decodes a YAML catalog. Unknown fields are an error.
func LoadCatalog(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var catalog Catalog
	if err := dec.Decode(&catalog); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return catalog.Archives, nil
}

func LoadCatalogFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	return LoadCatalog(f)
}
