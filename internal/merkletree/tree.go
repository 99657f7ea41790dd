// Copyright 2025 Shadow Atlas Contributors

package merkletree

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
	"github.com/shadowatlas/core/internal/leaf"
)

// ErrDuplicateID is returned when two records in the same build share an id.
// A district's id must be unique within one committed tree (spec §3).
var ErrDuplicateID = errors.New("merkletree: duplicate district id in build input")

// ErrEmptyInput is returned when Build is called with no records.
var ErrEmptyInput = errors.New("merkletree: build input is empty")

// LeafEntry is a committed leaf: the source record plus its derived hash.
type LeafEntry struct {
	Record boundary.NormalizedBoundary
	Hash   field.Element
}

// RegionNode is one region's subtree: its root and the ordered leaves that
// produced it.
type RegionNode struct {
	RegionCode string
	Root       field.Element
	Leaves     []LeafEntry
}

// CountryNode is one country's subtree: its root and the ordered regions
// that produced it.
type CountryNode struct {
	CountryCode string
	Root        field.Element
	Regions     []RegionNode
}

// ContinentNode is one continent's subtree: its root and the ordered
// countries that produced it.
type ContinentNode struct {
	Key       Continent
	Root      field.Element
	Countries []CountryNode
}

// Tree is the fully materialized hierarchical commitment for one build.
// Per spec §4.6/§9, only roots and leaf inputs are meant to survive past
// the build that produced them; a Tree is an in-memory, ephemeral
// structure used to derive the global root and to generate proofs, not a
// persisted artifact in its own right.
type Tree struct {
	GlobalRoot field.Element
	Continents []ContinentNode
}

// ProofIndex holds every sibling path computed during Build, keyed for
// O(1) proof retrieval without re-walking the tree.
type ProofIndex struct {
	districtPath       map[string][]Step
	districtCountryRoot map[string]field.Element
	countryPath        map[string][]Step
	globalRoot         field.Element
}

// Build groups records by (country_code, region_code), derives each leaf
// hash, and builds the four-level tree bottom-up exactly as spec §4.6
// describes: region -> country -> continent -> global, sorting by key at
// every level so construction is independent of input order.
func Build(records []boundary.NormalizedBoundary) (*Tree, *ProofIndex, error) {
	if len(records) == 0 {
		return nil, nil, ErrEmptyInput
	}

	seen := make(map[string]struct{}, len(records))
	type regionKey struct{ country, region string }
	regionGroups := make(map[regionKey][]LeafEntry)
	var regionKeys []regionKey

	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}

		h, err := leaf.Hash(r)
		if err != nil {
			return nil, nil, fmt.Errorf("merkletree: hashing leaf %s: %w", r.ID, err)
		}

		key := regionKey{country: r.CountryCode, region: r.RegionCode}
		if _, ok := regionGroups[key]; !ok {
			regionKeys = append(regionKeys, key)
		}
		regionGroups[key] = append(regionGroups[key], LeafEntry{Record: r, Hash: h})
	}

	idx := &ProofIndex{
		districtPath:        make(map[string][]Step),
		districtCountryRoot: make(map[string]field.Element),
		countryPath:         make(map[string][]Step),
	}

	// --- Level 0: leaves -> region roots ---
	type builtRegion struct {
		key  regionKey
		node RegionNode
	}
	var builtRegions []builtRegion
	for _, key := range regionKeys {
		leaves := regionGroups[key]
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].Record.ID < leaves[j].Record.ID })

		hashes := make([]field.Element, len(leaves))
		for i, l := range leaves {
			hashes[i] = l.Hash
		}
		root, paths := buildLevel(hashes)
		for i, l := range leaves {
			idx.districtPath[l.Record.ID] = append(idx.districtPath[l.Record.ID], paths[i]...)
		}
		builtRegions = append(builtRegions, builtRegion{key: key, node: RegionNode{RegionCode: key.region, Root: root, Leaves: leaves}})
	}

	// --- Level 1: region roots -> country roots ---
	countryRegions := make(map[string][]RegionNode)
	var countryOrder []string
	for _, br := range builtRegions {
		if _, ok := countryRegions[br.key.country]; !ok {
			countryOrder = append(countryOrder, br.key.country)
		}
		countryRegions[br.key.country] = append(countryRegions[br.key.country], br.node)
	}

	var builtCountries []CountryNode
	for _, countryCode := range countryOrder {
		regions := countryRegions[countryCode]
		sort.Slice(regions, func(i, j int) bool { return regions[i].RegionCode < regions[j].RegionCode })

		hashes := make([]field.Element, len(regions))
		for i, reg := range regions {
			hashes[i] = reg.Root
		}
		root, paths := buildLevel(hashes)
		for i, reg := range regions {
			for _, l := range reg.Leaves {
				idx.districtPath[l.Record.ID] = append(idx.districtPath[l.Record.ID], paths[i]...)
			}
		}
		for _, reg := range regions {
			for _, l := range reg.Leaves {
				idx.districtCountryRoot[l.Record.ID] = root
			}
		}
		builtCountries = append(builtCountries, CountryNode{CountryCode: countryCode, Root: root, Regions: regions})
	}

	// --- Level 2: country roots -> continent roots ---
	continentCountries := make(map[Continent][]CountryNode)
	var continentsPresent []Continent
	continentSeen := make(map[Continent]struct{})
	for _, cn := range builtCountries {
		continent, err := ContinentOf(cn.CountryCode)
		if err != nil {
			return nil, nil, fmt.Errorf("merkletree: building continent level: %w", err)
		}
		if _, ok := continentSeen[continent]; !ok {
			continentSeen[continent] = struct{}{}
			continentsPresent = append(continentsPresent, continent)
		}
		continentCountries[continent] = append(continentCountries[continent], cn)
	}

	countryContinentPath := make(map[string][]Step)
	var builtContinents []ContinentNode
	for _, continent := range continentsPresent {
		countries := continentCountries[continent]
		sort.Slice(countries, func(i, j int) bool { return countries[i].CountryCode < countries[j].CountryCode })

		hashes := make([]field.Element, len(countries))
		for i, c := range countries {
			hashes[i] = c.Root
		}
		root, paths := buildLevel(hashes)
		for i, c := range countries {
			countryContinentPath[c.CountryCode] = paths[i]
		}
		builtContinents = append(builtContinents, ContinentNode{Key: continent, Root: root, Countries: countries})
	}

	// --- Level 3: continent roots -> global root ---
	// Only continents actually present in this build participate; GlobalOrder
	// fixes their relative order regardless of build-to-build variation in
	// which continents are populated.
	continentByKey := make(map[Continent]ContinentNode, len(builtContinents))
	for _, cn := range builtContinents {
		continentByKey[cn.Key] = cn
	}
	var orderedContinents []ContinentNode
	for _, key := range GlobalOrder {
		if cn, ok := continentByKey[key]; ok {
			orderedContinents = append(orderedContinents, cn)
		}
	}

	hashes := make([]field.Element, len(orderedContinents))
	for i, cn := range orderedContinents {
		hashes[i] = cn.Root
	}
	globalRoot, paths := buildLevel(hashes)
	for i, cn := range orderedContinents {
		for _, country := range cn.Countries {
			idx.countryPath[country.CountryCode] = append(append([]Step{}, countryContinentPath[country.CountryCode]...), paths[i]...)
		}
	}

	idx.globalRoot = globalRoot
	return &Tree{GlobalRoot: globalRoot, Continents: orderedContinents}, idx, nil
}

// DistrictProof returns the sibling path from district id's leaf up to its
// country root, plus that country root, so a verifier can recompute and
// compare against the published country root independent of the global
// tree (spec §4.6).
func (p *ProofIndex) DistrictProof(districtID string) ([]Step, field.Element, error) {
	path, ok := p.districtPath[districtID]
	if !ok {
		return nil, field.Element{}, fmt.Errorf("merkletree: no district proof for id %q", districtID)
	}
	return path, p.districtCountryRoot[districtID], nil
}

// CountryProof returns the sibling path from countryCode's root up to the
// global root (spec §4.6).
func (p *ProofIndex) CountryProof(countryCode string) ([]Step, field.Element, error) {
	path, ok := p.countryPath[countryCode]
	if !ok {
		return nil, field.Element{}, fmt.Errorf("merkletree: no country proof for country %q", countryCode)
	}
	return path, p.globalRoot, nil
}

// VerifyDistrictProof recomputes the country root from leafHash and path
// and reports whether it matches claimedCountryRoot.
func VerifyDistrictProof(leafHash field.Element, path []Step, claimedCountryRoot field.Element) bool {
	computed := VerifyPath(leafHash, path)
	return field.Equal(computed, claimedCountryRoot)
}

// VerifyCountryProof recomputes the global root from countryRoot and path
// and reports whether it matches claimedGlobalRoot.
func VerifyCountryProof(countryRoot field.Element, path []Step, claimedGlobalRoot field.Element) bool {
	computed := VerifyPath(countryRoot, path)
	return field.Equal(computed, claimedGlobalRoot)
}
