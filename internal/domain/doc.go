// Package domain models synthesized weather conditions and hurricane tracks
// aggregated from heterogeneous upstream sources.
//
// # Units
//
// All unit normalization happens at the adapter boundary, so everything in
// this package is already in canonical units:
//
//	wind speed     mph
//	pressure       millibars
//	precipitation  millimeters
//	temperature    Celsius
//	distance       kilometers (convert to miles only for presentation)
//
// Upstream sources disagree on units (knots vs mph wind, km vs mi distance);
// adapters convert on ingest so no threshold in this package ever has to
// guess which unit it is being compared against.
//
// # Saffir-Simpson categories
//
// Category is always derived from sustained wind speed; adapters must not
// report a category inconsistent with wind speed, and [NormalizeTrack]
// rederives it regardless:
//
//	Cat 5  ≥157 mph | Cat 4  ≥130 | Cat 3  ≥111 | Cat 2  ≥96 | Cat 1  ≥74 | 0 below
//
// # Severity
//
// The four-level ladder minor < moderate < severe < extreme is totally
// ordered via [Severity.Rank]. Severity and condition type jointly determine
// the recommendation text through [RecommendationFor], a pure function.
//
// # Condition synthesis
//
// [Analyzer.Analyze] applies a fixed short-circuit decision order: active
// severe/extreme alerts first, then hurricane proximity against the 500 km
// danger and 1000 km watch radii, then thresholds over averaged observations.
// When multiple providers contribute readings, numeric fields are averaged
// arithmetically; confidence does not weight the average.
//
// # Identity
//
// Condition IDs are deterministic, source-prefixed SHA-256 hashes of the
// event's key fields ([ConditionID]). The notification cache deduplicates on
// ID, so re-fetching the same upstream event must reproduce the same ID.
//
// # Real vs mock data
//
// Every condition, reading, alert, and track carries a [DataSource] tag.
// Mock data is a distinct, explicitly wired path for test mode; a production
// code path must never substitute mock data for a failed real fetch without
// that tag.
package domain
