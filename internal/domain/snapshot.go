package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// CutoffTable maps raw category keys to raw country keys to raw cutoff cells.
type CutoffTable map[string]map[string]string

// FamilyTables holds the family and employment tables of one dimension.
type FamilyTables struct {
	Family     CutoffTable `json:"family"`
	Employment CutoffTable `json:"employment"`
}

// BulletinDocument is the raw bulletin as published by the document store.
type BulletinDocument struct {
	BulletinMonth    string       `json:"bulletin_month,omitempty"`
	FinalActionDates FamilyTables `json:"final_action_dates"`
	DatesForFiling   FamilyTables `json:"dates_for_filing"`
}

// table returns the raw table for one dimension and family.
func (d BulletinDocument) table(dim Dimension, family Family) CutoffTable {
	tables := d.FinalActionDates
	if dim == Filing {
		tables = d.DatesForFiling
	}
	if family == EmploymentBased {
		return tables.Employment
	}
	return tables.Family
}

// DecodeBulletinDocument decodes a bulletin, unwrapping a {"record": ...} envelope when present.
func DecodeBulletinDocument(data []byte) (BulletinDocument, error) {
	payload, err := unwrapRecord(data)
	if err != nil {
		return BulletinDocument{}, fmt.Errorf("%w: %v", ErrInvalidBulletin, err)
	}
	var doc BulletinDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return BulletinDocument{}, fmt.Errorf("%w: %v", ErrInvalidBulletin, err)
	}
	return doc, nil
}

// unwrapRecord strips the document store envelope.
func unwrapRecord(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	var envelope struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Record) > 0 && !bytes.Equal(envelope.Record, []byte("null")) {
		return envelope.Record, nil
	}
	return data, nil
}

// Cell is one normalized snapshot entry. ParseErr is set for malformed upstream values.
type Cell struct {
	RawCategory string
	RawCountry  string
	Raw         string
	Value       CutoffValue
	ParseErr    error
}

// Malformed reports whether the upstream value could not be parsed.
func (c Cell) Malformed() bool { return c.ParseErr != nil }

type snapshotKey struct {
	dim    Dimension
	family Family
}

// BulletinSnapshot is the immutable, normalized cutoff table of one bulletin.
type BulletinSnapshot struct {
	month  string
	tables map[snapshotKey]map[string]map[string]Cell
}

// NewSnapshot normalizes every key of doc. Keys that collide after normalization
// keep the lexically first raw spelling.
func NewSnapshot(doc BulletinDocument) (BulletinSnapshot, error) {
	snap := BulletinSnapshot{
		month:  strings.TrimSpace(doc.BulletinMonth),
		tables: map[snapshotKey]map[string]map[string]Cell{},
	}
	cells := 0
	for _, dim := range Dimensions {
		for _, family := range Families {
			raw := doc.table(dim, family)
			if len(raw) == 0 {
				continue
			}
			categories := map[string]map[string]Cell{}
			for _, rawCategory := range sortedKeys(raw) {
				catKey := CategoryKey(rawCategory)
				countries, ok := categories[catKey]
				if !ok {
					countries = map[string]Cell{}
					categories[catKey] = countries
				}
				for _, rawCountry := range sortedKeys(raw[rawCategory]) {
					countryKey := CountryKey(family, rawCountry)
					if _, exists := countries[countryKey]; exists {
						continue
					}
					value := raw[rawCategory][rawCountry]
					parsed, err := ParseCutoff(value)
					countries[countryKey] = Cell{
						RawCategory: rawCategory,
						RawCountry:  rawCountry,
						Raw:         value,
						Value:       parsed,
						ParseErr:    err,
					}
					cells++
				}
			}
			snap.tables[snapshotKey{dim: dim, family: family}] = categories
		}
	}
	if cells == 0 {
		return BulletinSnapshot{}, fmt.Errorf("%w: no cutoff cells", ErrInvalidBulletin)
	}
	return snap, nil
}

// Month returns the bulletin month label when the document carried one.
func (s BulletinSnapshot) Month() string { return s.month }

// Lookup returns the cell for a category and country. The country is normalized with
// the family-aware alias table; the category is an internal bulletin key.
func (s BulletinSnapshot) Lookup(dim Dimension, family Family, internalCategory, country string) (Cell, bool) {
	categories, ok := s.tables[snapshotKey{dim: dim, family: family}]
	if !ok {
		return Cell{}, false
	}
	countries, ok := categories[CategoryKey(internalCategory)]
	if !ok {
		return Cell{}, false
	}
	cell, ok := countries[CountryKey(family, country)]
	return cell, ok
}

// Rows returns cells of one table ordered by category then country key.
func (s BulletinSnapshot) Rows(dim Dimension, family Family) []Cell {
	categories := s.tables[snapshotKey{dim: dim, family: family}]
	out := make([]Cell, 0)
	for _, catKey := range sortedKeys(categories) {
		countries := categories[catKey]
		for _, countryKey := range sortedKeys(countries) {
			out = append(out, countries[countryKey])
		}
	}
	return out
}

// IsZero reports whether the snapshot was never built.
func (s BulletinSnapshot) IsZero() bool { return s.tables == nil }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
