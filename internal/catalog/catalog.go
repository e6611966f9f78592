// Package catalog provides a read-only index over the external rule-schema
// catalog: the fixed table of rule archetypes, each declaring an
// ordinal-indexed source and destination field layout.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SchemaField is one named position inside an archetype's field layout.
// Ordinals are 1-based and dense within an entry.
type SchemaField struct {
	Name      string `json:"name"`
	Ordinal   int    `json:"ordinal"`
	Mandatory bool   `json:"mandatory"`
}

// FieldGroup wraps a list of schema fields the way the catalog JSON nests
// them.
type FieldGroup struct {
	NumberOfItems int           `json:"numberOfItems"`
	Fields        []SchemaField `json:"fields"`
}

// Entry is one immutable rule archetype record from the catalog.
type Entry struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Action            string     `json:"action"`
	Source            string     `json:"source"`
	ProcessingType    string     `json:"processingType"`
	Button            string     `json:"button"`
	SourceFields      FieldGroup `json:"sourceFields"`
	DestinationFields FieldGroup `json:"destinationFields"`
}

// DestinationCount returns the size of the entry's positional destination
// array.
func (e *Entry) DestinationCount() int {
	if e.DestinationFields.NumberOfItems > 0 {
		return e.DestinationFields.NumberOfItems
	}
	return len(e.DestinationFields.Fields)
}

type sourceActionKey struct {
	source string
	action string
}

// Catalog indexes the external rule-schema catalog. Loaded once at startup
// and never mutated afterwards.
type Catalog struct {
	entries        []*Entry
	byID           map[int]*Entry
	bySource       map[string][]*Entry
	bySourceAction map[sourceActionKey]*Entry
	logger         *zap.SugaredLogger
}

type catalogFile struct {
	Content []*Entry `json:"content"`
}

// Load reads and indexes a catalog JSON file.
func Load(path string, logger *zap.SugaredLogger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule catalog: %w", err)
	}
	return Parse(data, logger)
}

// Parse indexes a catalog from raw JSON.
func Parse(data []byte, logger *zap.SugaredLogger) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule catalog: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Catalog{
		entries:        file.Content,
		byID:           make(map[int]*Entry),
		bySource:       make(map[string][]*Entry),
		bySourceAction: make(map[sourceActionKey]*Entry),
		logger:         logger,
	}
	for _, e := range file.Content {
		c.byID[e.ID] = e
		c.bySource[e.Source] = append(c.bySource[e.Source], e)
		key := sourceActionKey{source: e.Source, action: e.Action}
		if _, dup := c.bySourceAction[key]; !dup {
			c.bySourceAction[key] = e
		}
	}
	return c, nil
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns every catalog entry in file order. Callers must not
// mutate the returned slice.
func (c *Catalog) Entries() []*Entry {
	return c.entries
}

// GetByID returns the entry with the given id, or nil.
func (c *Catalog) GetByID(id int) *Entry {
	return c.byID[id]
}

// FindBySource returns all entries registered for a source type.
func (c *Catalog) FindBySource(sourceType string) []*Entry {
	return c.bySource[sourceType]
}

// FindBySourceAndAction returns the entry for a (sourceType, actionType)
// pair, or nil when the catalog has no such archetype.
func (c *Catalog) FindBySourceAndAction(sourceType, actionType string) *Entry {
	return c.bySourceAction[sourceActionKey{source: sourceType, action: actionType}]
}

// DestinationOrdinals returns a case-normalized name -> ordinal map for the
// entry's destination layout, used for fuzzy ordinal matching.
func (c *Catalog) DestinationOrdinals(id int) map[string]int {
	entry := c.byID[id]
	if entry == nil {
		return nil
	}
	ordinals := make(map[string]int, len(entry.DestinationFields.Fields))
	for _, f := range entry.DestinationFields.Fields {
		ordinals[normalizeName(f.Name)] = f.Ordinal
	}
	return ordinals
}

// DestinationCount returns the destination array size for an entry, or 0
// when the entry is unknown.
func (c *Catalog) DestinationCount(id int) int {
	entry := c.byID[id]
	if entry == nil {
		return 0
	}
	return entry.DestinationCount()
}

// BuildDestinationIDs allocates the entry's positional destination array,
// -1 at every unmapped ordinal, and places each mapped field id at the
// ordinal its schema field name resolves to. Names that resolve to nothing
// are dropped, not fatal: the pipeline is best-effort.
func (c *Catalog) BuildDestinationIDs(id int, fieldMappings map[string]int) []int {
	count := c.DestinationCount(id)
	if count == 0 {
		return nil
	}
	ordinals := c.DestinationOrdinals(id)

	dest := make([]int, count)
	for i := range dest {
		dest[i] = -1
	}
	for schemaName, fieldID := range fieldMappings {
		ordinal, ok := ordinals[normalizeName(schemaName)]
		if !ok || ordinal < 1 || ordinal > count {
			c.logger.Debugw("unresolved catalog destination name",
				"catalogId", id, "name", schemaName)
			continue
		}
		dest[ordinal-1] = fieldID
	}
	return dest
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
