package rules

import "github.com/repowatch/repowatch/internal/types"

// Cookie-setting calls in common web frameworks (Express res.cookie, PHP setcookie).
const cookieCall = `(?i)(?:\b(?:res|response)\.cookie\s*\(|\bsetcookie\s*\()`

var contentRules = []Rule{
	{
		ID: "aws_access_key", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "AWS access key ID found in %s",
		Hint:    "Deactivate the key in IAM, rotate it and use instance roles or environment credentials.",
		match:   pattern(`AKIA[0-9A-Z]{16}`),
	},
	{
		ID: "aws_secret_key", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "AWS secret key reference found in %s",
		Hint:    "Never hardcode AWS secrets; read them from the environment or AWS Secrets Manager.",
		match:   contains("AWS_SECRET_KEY"),
	},
	{
		ID: "hardcoded_password", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Hardcoded password in %s",
		Hint:    "Move the password to a secrets manager or environment variable and rotate it.",
		match:   pattern(`(?i)password\s*=\s*["'][^"']+["']`),
	},
	{
		ID: "private_key_block", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Private key block embedded in %s",
		Hint:    "Remove the key material, purge it from history and generate a new key.",
		match:   contains("BEGIN PRIVATE KEY"),
	},
	{
		ID: "hardcoded_api_key", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Hardcoded API key in %s",
		Hint:    "Load API keys from configuration at runtime and revoke the exposed key.",
		match:   pattern(`(?i)api[_-]key\s*=\s*["'][^"']+["']`),
	},
	{
		ID: "stripe_live_key", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Stripe live secret key found in %s",
		Hint:    "Roll the key in the Stripe dashboard and keep it server-side in a secret store.",
		match:   pattern(`sk_live_[0-9a-zA-Z]{24,}`),
	},
	{
		ID: "mongodb_uri", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevHigh,
		Message: "MongoDB connection string in %s",
		Hint:    "Keep connection strings in the environment; rotate credentials embedded in the URI.",
		match:   pattern(`(?i)mongodb(?:\+srv)?://[^\s'"]+`),
	},
	{
		ID: "postgres_uri", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevHigh,
		Message: "PostgreSQL connection string in %s",
		Hint:    "Keep connection strings in the environment; rotate credentials embedded in the URI.",
		match:   pattern(`(?i)postgres(?:ql)?://[^\s'"]+`),
	},
	{
		ID: "jwt", Kind: KindContent,
		Category: types.CatSecrets, Severity: types.SevHigh,
		Message: "JSON Web Token embedded in %s",
		Hint:    "Do not commit tokens; if it is a signing secret or long-lived token, revoke it.",
		match:   pattern(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
	},
	{
		ID: "weak_hash", Kind: KindContent,
		Category: types.CatCrypto, Severity: types.SevHigh,
		Message: "Weak hash algorithm (MD5/SHA-1) used in %s",
		Hint:    "Use SHA-256 or better for integrity and a password KDF (bcrypt, scrypt, argon2) for passwords.",
		match:   pattern(`(?i)(?:createHash\(\s*["'](?:md5|sha1)["']|hashlib\.(?:md5|sha1)\s*\(|MessageDigest\.getInstance\(\s*"(?:md5|sha-?1)")`),
	},
	{
		ID: "sha256_hash", Kind: KindContent,
		Category: types.CatCrypto, Severity: types.SevMed,
		Message: "Plain SHA-256 hashing in %s",
		Hint:    "SHA-256 is fine for integrity but not for passwords; use a salted KDF for credentials.",
		match:   pattern(`(?i)(?:createHash\(\s*["']sha256["']|hashlib\.sha256\s*\(|MessageDigest\.getInstance\(\s*"sha-?256")`),
	},
	{
		ID: "cookie_missing_httponly", Kind: KindContent,
		Category: types.CatCookies, Severity: types.SevHigh,
		Message: "Cookie set without HttpOnly in %s",
		Hint:    "Set the HttpOnly flag so scripts cannot read session cookies.",
		match:   without(pattern(cookieCall), "HttpOnly"),
	},
	{
		ID: "cookie_missing_secure", Kind: KindContent,
		Category: types.CatCookies, Severity: types.SevHigh,
		Message: "Cookie set without Secure in %s",
		Hint:    "Set the Secure flag so cookies are only sent over HTTPS.",
		match:   without(pattern(cookieCall), "Secure"),
	},
	{
		ID: "default_credentials", Kind: KindContent,
		Category: types.CatCredentials, Severity: types.SevCritical,
		Message: "Default admin/root credentials in %s",
		Hint:    "Remove default credentials and require a unique password at provisioning time.",
		match:   pattern(`(?i)(?:admin|root)\s*[:=]\s*(?:admin|password|1234)`),
	},
	{
		ID: "sensitive_logging", Kind: KindContent,
		Category: types.CatLogging, Severity: types.SevMed,
		Message: "Password or token written to logs in %s",
		Hint:    "Redact credentials before logging; log identifiers, not secrets.",
		match:   pattern(`(?i)\b(?:console\.(?:log|info|warn|error|debug)|logger\.\w+|log\.\w+|print(?:ln|f)?)\s*\([^)\n]*(?:password|token)`),
	},
	{
		ID: "public_s3_bucket", Kind: KindContent,
		Category: types.CatCloud, Severity: types.SevHigh,
		Message: "S3 bucket referenced in %s without a private ACL",
		Hint:    "Block public access on the bucket and set a private ACL explicitly.",
		match:   without(contains("s3://"), "private"),
	},
	{
		ID: "stack_trace_exposure", Kind: KindContent,
		Category: types.CatErrors, Severity: types.SevMed,
		Message: "Stack trace may be exposed to users in %s",
		Hint:    "Return generic error messages and log stack traces server-side only.",
		match:   both(pattern(`(?i)error:`), pattern(`\bat\s+[\w$.<>]+`)),
	},
}
