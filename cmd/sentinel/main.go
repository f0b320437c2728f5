// Sentinel is a budget-aware execution guard for document generation
// and QA pipelines.
//
// It wraps every billable downstream call (AI vision validation, OCR,
// rendering) with:
//   - Hard budget caps per document, per day, and per month
//   - Per-service circuit breakers with automatic recovery probes
//   - A durable fallback queue with bounded retries and TTL expiration
//   - An append-only cost ledger with scheduled retention pruning
//
// Usage:
//
//	# Start the guard daemon with default configuration
//	sentinel run
//
//	# Start with a custom configuration file
//	sentinel run --config /path/to/config.yaml
//
//	# Show current spend and queue state
//	sentinel status
//
//	# Show version information
//	sentinel version
package main

func main() {
	Execute()
}
