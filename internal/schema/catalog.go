// Package schema holds the immutable CCTNS schema catalog. It is loaded once
// at process start and read-only afterwards, so no synchronization is needed
// on lookups.
package schema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cctns-copilot/internal/common/validation"
)

// TableKind distinguishes reference (master) tables from event (transaction)
// tables.
type TableKind string

const (
	KindMaster      TableKind = "master"
	KindTransaction TableKind = "transaction"
)

// ForeignKey links a column to a referenced table.column. Both sides must
// exist in the catalog; that is checked at load time.
type ForeignKey struct {
	Column     string `yaml:"column"`
	References string `yaml:"references"` // TABLE.column
}

// Table describes one catalog table. Columns keep their declared order.
type Table struct {
	Name           string       `yaml:"name"`
	Kind           TableKind    `yaml:"kind"`
	Columns        []string     `yaml:"columns"`
	PrimaryKey     string       `yaml:"primary_key"`
	ForeignKeys    []ForeignKey `yaml:"foreign_keys"`
	IndexedColumns []string     `yaml:"indexed_columns"`
}

// HasColumn resolves a column name case-insensitively.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Catalog is the loaded schema. Table lookup is case-insensitive; the
// canonical (upper-case) names are preserved for SQL generation.
type Catalog struct {
	tables  map[string]*Table // upper-case name -> table
	ordered []*Table
}

type document struct {
	Tables []Table `yaml:"tables"`
}

// documentSchema is the JSON schema the raw document must satisfy before it
// is interpreted. Startup-fatal on violation.
const documentSchema = `{
	"type": "object",
	"required": ["tables"],
	"properties": {
		"tables": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "kind", "columns", "primary_key"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"kind": {"type": "string", "enum": ["master", "transaction"]},
					"columns": {"type": "array", "minItems": 1, "items": {"type": "string"}},
					"primary_key": {"type": "string", "minLength": 1},
					"foreign_keys": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["column", "references"],
							"properties": {
								"column": {"type": "string"},
								"references": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*\\.[A-Za-z_][A-Za-z0-9_]*$"}
							}
						}
					},
					"indexed_columns": {"type": "array", "items": {"type": "string"}}
				}
			}
		}
	}
}`

// Load reads and validates the catalog document at path. Any inconsistency
// (malformed document, duplicate table or column, dangling foreign key) is an
// error; the caller treats it as fatal.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a catalog from raw YAML.
func Parse(raw []byte) (*Catalog, error) {
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse schema catalog: %w", err)
	}

	result, err := validation.ValidateDocument(generic, documentSchema)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, fmt.Errorf("schema catalog document invalid: %s", result.Summary())
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode schema catalog: %w", err)
	}

	cat := &Catalog{tables: make(map[string]*Table, len(doc.Tables))}
	for i := range doc.Tables {
		t := &doc.Tables[i]
		key := strings.ToUpper(t.Name)
		if _, dup := cat.tables[key]; dup {
			return nil, fmt.Errorf("duplicate table %s", t.Name)
		}

		seen := make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			ck := strings.ToLower(c)
			if _, dup := seen[ck]; dup {
				return nil, fmt.Errorf("table %s: duplicate column %s", t.Name, c)
			}
			seen[ck] = struct{}{}
		}
		if !t.HasColumn(t.PrimaryKey) {
			return nil, fmt.Errorf("table %s: primary key %s is not a column", t.Name, t.PrimaryKey)
		}

		cat.tables[key] = t
		cat.ordered = append(cat.ordered, t)
	}

	if err := cat.checkForeignKeys(); err != nil {
		return nil, err
	}

	return cat, nil
}

// checkForeignKeys verifies every FK source column and target table.column
// exist. A dangling reference is never dropped silently.
func (c *Catalog) checkForeignKeys() error {
	for _, t := range c.ordered {
		for _, fk := range t.ForeignKeys {
			if !t.HasColumn(fk.Column) {
				return fmt.Errorf("table %s: foreign key column %s does not exist", t.Name, fk.Column)
			}
			refTable, refColumn, ok := strings.Cut(fk.References, ".")
			if !ok {
				return fmt.Errorf("table %s: malformed foreign key reference %q", t.Name, fk.References)
			}
			target := c.Table(refTable)
			if target == nil {
				return fmt.Errorf("table %s: foreign key references unknown table %s", t.Name, refTable)
			}
			if !target.HasColumn(refColumn) {
				return fmt.Errorf("table %s: foreign key references unknown column %s.%s", t.Name, refTable, refColumn)
			}
		}
	}
	return nil
}

// Table returns the table with the given name (case-insensitive), or nil.
func (c *Catalog) Table(name string) *Table {
	return c.tables[strings.ToUpper(name)]
}

// HasTable reports whether name resolves in the catalog.
func (c *Catalog) HasTable(name string) bool {
	return c.Table(name) != nil
}

// HasColumn reports whether table.column resolves in the catalog.
func (c *Catalog) HasColumn(table, column string) bool {
	t := c.Table(table)
	return t != nil && t.HasColumn(column)
}

// ResolveColumn reports whether column exists on any of the given tables.
// Used for unqualified column references.
func (c *Catalog) ResolveColumn(column string, tables []string) bool {
	for _, name := range tables {
		if c.HasColumn(name, column) {
			return true
		}
	}
	return false
}

// Tables returns the catalog tables in declaration order.
func (c *Catalog) Tables() []*Table {
	return c.ordered
}

// DDLSummary renders a compact textual description of the catalog for the
// generative model prompt.
func (c *Catalog) DDLSummary() string {
	var b strings.Builder
	for _, t := range c.ordered {
		fmt.Fprintf(&b, "%s (%s): %s", t.Name, t.Kind, strings.Join(t.Columns, ", "))
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "; %s -> %s", fk.Column, fk.References)
		}
		b.WriteString("\n")
	}
	return b.String()
}
