// Copyright 2025 Shadow Atlas Contributors

package leaf

import (
	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/field"
)

// Hash derives the committed leaf_hash for a validated, resolved
// NormalizedBoundary (spec §4.5):
//
//	leaf_hash = H(H(H(H(type_tag, id_hash), geometry_hash), authority), provenance_hash)
//
// type_tag and id_hash are themselves Poseidon hashes of the boundary-type
// and id strings; the chain is iterative and non-commutative by
// construction since hash_pair is never applied with its arguments
// reordered.
func Hash(b boundary.NormalizedBoundary) (field.Element, error) {
	geometryHash, err := GeometryHash(b.Geometry)
	if err != nil {
		return field.Element{}, err
	}

	typeTag := field.HashString(string(b.BoundaryType))
	idHash := field.HashString(b.ID)
	authorityElem := field.FromUint64(uint64(b.Authority))
	provenanceHash := ProvenanceHash(b.Provenance)

	acc := field.HashPair(typeTag, idHash)
	acc = field.HashPair(acc, geometryHash)
	acc = field.HashPair(acc, authorityElem)
	acc = field.HashPair(acc, provenanceHash)
	return acc, nil
}

// ProvenanceHash derives provenance_hash = H(H(source_url), H(checksum),
// retrieved_at_unix) (spec §4.5), applied iteratively like the leaf chain.
func ProvenanceHash(p boundary.Provenance) field.Element {
	sourceHash := field.HashString(p.SourceURL)
	checksumHash := field.HashString(p.ChecksumOfRawPayload)
	retrievedAt := field.FromUint64(uint64(p.RetrievedAt.Unix()))

	acc := field.HashPair(sourceHash, checksumHash)
	acc = field.HashPair(acc, retrievedAt)
	return acc
}
