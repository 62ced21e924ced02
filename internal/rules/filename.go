package rules

import "github.com/repowatch/repowatch/internal/types"

var filenameRules = []Rule{
	{
		ID: "env_file", Kind: KindFilename,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Environment file %s may contain secrets",
		Hint:    "Remove .env files from the repository, add them to .gitignore and rotate any values they held.",
		match:   contains(".env"),
	},
	{
		ID: "private_key_file", Kind: KindFilename,
		Category: types.CatSecrets, Severity: types.SevCritical,
		Message: "Private key file %s is committed",
		Hint:    "Delete the key from the tree and its history, then issue a new key pair.",
		match:   either(contains("id_rsa"), hasSuffix(".pem")),
	},
	{
		ID: "config_file", Kind: KindFilename,
		Category: types.CatSecrets, Severity: types.SevHigh,
		Message: "Configuration file %s may hold credentials",
		Hint:    "Load credentials from the environment or a secrets manager instead of config files.",
		match:   equals("config.js", "config.json"),
	},
	{
		ID: "secret_named_file", Kind: KindFilename,
		Category: types.CatSecrets, Severity: types.SevHigh,
		Message: "File %s is named like a secret or password store",
		Hint:    "Keep secret material out of version control and reference it at runtime.",
		match:   contains("secret", "password"),
	},
	{
		ID: "log_file", Kind: KindFilename,
		Category: types.CatLogging, Severity: types.SevLow,
		Message: "Log file %s is committed and may leak runtime data",
		Hint:    "Ignore *.log files and ship logs to a log store instead.",
		match:   hasSuffix(".log"),
	},
}
