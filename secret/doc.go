// Package secret resolves configuration values that may hold secrets.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry), with built-in
//     "env" and "file" providers
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Environment: secretref:env:OPSGATE_JWT_SECRET_V2
//   - File:        secretref:file:/run/secrets/jwt
//   - Inline use:  Bearer secretref:env:UPSTREAM_TOKEN
package secret
