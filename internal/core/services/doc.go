// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Ingestor depends only on port interfaces; adapters are
// chosen by the composition root in internal/app.
package services
