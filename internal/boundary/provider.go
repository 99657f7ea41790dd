// Copyright 2025 Shadow Atlas Contributors

package boundary

import "context"

// RawBlob is an opaque, unparsed payload returned by a provider's download
// step, carrying enough provenance to compute a Provenance record once
// transformed.
type RawBlob struct {
	URL      string
	Payload  []byte
	Checksum string
}

// FreshnessProbe is the result of a HEAD-style request against an upstream
// source, consumed by the Change Detector (§4.9).
type FreshnessProbe struct {
	ETag         string
	LastModified string
	Size         int64
}

// ProviderMetadata describes a provider's identity and operating limits.
// The Authority Resolver's source-preference table and the Orchestrator's
// per-provider concurrency ceilings are set from their own configuration,
// not read from this struct.
type ProviderMetadata struct {
	ProviderName        string
	PreferredRankPerLayer map[Type]int
	RateLimitHint        int // requests per second, 0 = unspecified
}

// Provider is the external collaborator that downloads and normalizes
// boundary data for one (layer, jurisdiction, vintage) tuple. Implementing
// Provider (HTTP/FTP clients, shapefile decoding) is explicitly out of
// scope for this module (spec §1); the pipeline only consumes this
// contract. Country-specific behavior lives in concrete implementations
// registered by country code at startup, not in a class hierarchy.
type Provider interface {
	// Download streams raw blobs for the given tuple. Each blob carries its
	// upstream URL and an opaque payload checksum.
	Download(ctx context.Context, layer Type, jurisdiction string, vintage int) (<-chan RawBlob, error)

	// Transform parses one raw blob into zero or more normalized boundary
	// records.
	Transform(ctx context.Context, blob RawBlob) ([]NormalizedBoundary, error)

	// FreshnessProbeFor performs a HEAD-style check without downloading the
	// full payload.
	FreshnessProbeFor(ctx context.Context, layer Type, jurisdiction string, vintage int) (FreshnessProbe, error)

	// Metadata describes this provider's identity and preferences.
	Metadata() ProviderMetadata
}
