// Package share serves curated gold tables to external collaborators
// over a small token-authenticated HTTP facade.
package share

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk sharing configuration: which gold tables are
// visible, grouped into shares and schemas.
type Document struct {
	Shares []Share `yaml:"shares"`
}

// Share is a named grant containing one or more schemas.
type Share struct {
	Name    string   `yaml:"name"`
	Schemas []Schema `yaml:"schemas"`
}

// Schema groups the tables of a share.
type Schema struct {
	Name   string  `yaml:"name"`
	Tables []Table `yaml:"tables"`
}

// Table maps an exposed table name onto a warehouse gold table.
type Table struct {
	Name string `yaml:"name"`
	// GoldTable is the backing table in the gold schema. Defaults to Name.
	GoldTable string `yaml:"gold_table,omitempty"`
	Location  string `yaml:"location,omitempty"`
}

// Backing returns the gold table this entry reads from.
func (t Table) Backing() string {
	if t.GoldTable != "" {
		return t.GoldTable
	}
	return t.Name
}

// Default exposes all five gold views under a single share.
func Default() *Document {
	tables := []string{
		"transactions_summary",
		"regional_kpis",
		"product_insights",
		"customer_segments",
		"market_trends",
	}
	schema := Schema{Name: "gold"}
	for _, name := range tables {
		schema.Tables = append(schema.Tables, Table{Name: name})
	}
	return &Document{
		Shares: []Share{{
			Name:    "scout_analytics",
			Schemas: []Schema{schema},
		}},
	}
}

// LoadDocument reads the sharing configuration from path. A missing
// file falls back to the default document exposing every gold view.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, eris.Wrapf(err, "share: read config %s", path)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "share: parse config %s", path)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects documents with unnamed or duplicate entries.
func (d *Document) Validate() error {
	if len(d.Shares) == 0 {
		return eris.New("share: config defines no shares")
	}
	seen := map[string]bool{}
	for _, s := range d.Shares {
		if s.Name == "" {
			return eris.New("share: share with empty name")
		}
		if seen[s.Name] {
			return eris.Errorf("share: duplicate share %q", s.Name)
		}
		seen[s.Name] = true
		for _, sc := range s.Schemas {
			if sc.Name == "" {
				return eris.Errorf("share: schema with empty name in share %q", s.Name)
			}
			for _, t := range sc.Tables {
				if t.Name == "" {
					return eris.Errorf("share: table with empty name in %s.%s", s.Name, sc.Name)
				}
			}
		}
	}
	return nil
}

// FindShare returns the named share, if present.
func (d *Document) FindShare(name string) (*Share, bool) {
	for i := range d.Shares {
		if d.Shares[i].Name == name {
			return &d.Shares[i], true
		}
	}
	return nil, false
}

// FindTable resolves share/schema/table to the exposed table entry.
func (d *Document) FindTable(share, schema, table string) (*Table, bool) {
	s, ok := d.FindShare(share)
	if !ok {
		return nil, false
	}
	for i := range s.Schemas {
		if s.Schemas[i].Name != schema {
			continue
		}
		for j := range s.Schemas[i].Tables {
			if s.Schemas[i].Tables[j].Name == table {
				return &s.Schemas[i].Tables[j], true
			}
		}
	}
	return nil, false
}
