// =============================================================================
// Recibos Dispatcher - Main Entry Point
// =============================================================================
//
// USAGE:
//   recibos process       - Rename PDF receipts and email them with their XML
//   recibos check         - Verify configuration without changing anything
//   recibos roster        - Inspect the employee roster
//   recibos version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Dispatch logic (extraction, matching, notification)
//   - pkg/           : Shared filesystem utilities
//
// =============================================================================

package main

import (
	"github.com/nominas/recibos-dispatcher/cmd"
)

func main() {
	cmd.Execute()
}
