// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The extraction lifecycle lives in DocumentExtractionAggregate; the scanner
// and worker build on it and never write extraction state directly.
package services
