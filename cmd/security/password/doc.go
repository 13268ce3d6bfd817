// Package password hashes and verifies account passwords.
//
// New hashes are Argon2id in the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Verify also accepts bcrypt hashes ($2a$, $2b$, $2y$) so credential tables
// written by older deployments keep working. Stored hashes are treated as
// untrusted input and decoded strictly.
package password
