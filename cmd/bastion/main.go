// Bastion validates and rewrites untrusted PHP programs against a symbol
// policy before they are handed to an executor.
//
// Programs are read as parsed syntax trees serialized to YAML or JSON. Each
// program is checked against the whitelists, blacklists and feature options
// of the configured sandbox and, when accepted, rewritten so that every
// sensitive operation passes through the sandbox runtime.
//
// Usage:
//
//	# Check programs against the policy in policy.yaml
//	bastion check --policy policy.yaml job.yaml report.json
//
//	# Lint policy documents
//	bastion policy lint policy.yaml
//
//	# Keep the policy hot and expose metrics
//	bastion watch --config bastion.yaml --metrics-addr :9090
//
//	# Remove expired validation cache entries
//	bastion cache purge
package main

func main() {
	Execute()
}
