package aqa

// Exit codes returned by the aqareport CLI, for scripts and CI steps
// that branch on them.
const (
	// ExitSuccess means the command completed and no test failed.
	ExitSuccess = 0

	// ExitFailure means a runtime failure, or a report with failed or
	// errored tests when --fail-on-failures is set.
	ExitFailure = 1

	// ExitConfigError means invalid configuration or malformed input.
	ExitConfigError = 2

	// ExitEnvError means a missing browser, unreachable storage or
	// another environment problem.
	ExitEnvError = 3
)
