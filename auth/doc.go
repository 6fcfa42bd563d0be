// Package auth authenticates HTTP requests with HS256 bearer tokens and
// gates routes by permission-group membership.
//
// A Verifier turns a raw credential into a trusted Identity or a classified
// *Error. A Gate wires the verifier into an http.Handler chain: it extracts
// the credential from the Authorization header, rejects inactive accounts,
// attaches the identity to the request context and enforces the route's
// Requirement.
//
//	keys, _ := auth.NewStaticKey(secret)
//	verifier, _ := auth.NewVerifier(auth.VerifierConfig{}, keys)
//	gate := auth.NewGate(verifier)
//
//	mux.Handle("GET /backups",
//	    gate.Require("GET /backups", auth.AnyOf("BACKUP_READ"))(listBackups))
//
// Rejections are written as {"ok": false, "reason": "<Kind>", "message": "..."}
// with status 401, or 403 for PermissionDenied.
package auth
