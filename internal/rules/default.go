package rules

// DefaultPatterns contains the built-in rule tables.
var DefaultPatterns = Patterns{
	Commands: []Entry{
		{`rm\s+-rf\s+/`, "Recursive delete from root"},
		{`rm\s+-rf\s+~`, "Recursive delete from home"},
		{`rm\s+-rf\s+\.(\s|$)`, "Recursive delete from current dir"},
		{`chmod\s+-R\s+777\s+/`, "World-writable permissions on system"},
		{`mkfs\.`, "Filesystem format"},
		{`dd\s+if=.*of=/dev/`, "Direct disk write"},
		{`>\s*/dev/sd`, "Redirect to disk device"},
		{`find\s+.*-type\s+f\s+-delete`, "Mass file deletion"},
		{`git\s+reset\s+--hard`, "Discard uncommitted work"},
		{`curl.*\|\s*(?:ba)?sh`, "Pipe curl to shell"},
		{`wget.*\|\s*(?:ba)?sh`, "Pipe wget to shell"},
	},
	ProtectedPaths: []Entry{
		{`\.env$`, "Environment file"},
		{`\.env\.local$`, "Local environment file"},
		{`\.env\.production$`, "Production environment file"},
		{`credentials`, "Credentials file"},
		{`secrets?\.json`, "Secrets file"},
		{`\.pem$`, "PEM certificate or key"},
		{`\.key$`, "Private key"},
	},
	AllowedPaths: []Entry{
		{`\.env\.sample$`, "Sample environment file"},
		{`\.env\.example$`, "Example environment file"},
		{`\.env\.template$`, "Environment template"},
	},
}

// DefaultYAML returns a commented rules file for `hookgate init`.
func DefaultYAML() string {
	return `# hookgate rules
# Generated by: hookgate init
#
# Every table is evaluated in order and the first match wins.
# Patterns are RE2 regular expressions matched anywhere in the input
# (unanchored). Use ^ and $ to anchor.
#
# File access: allowed_paths is checked first and overrides protected_paths.
# Omitting a table keeps its built-in defaults; an empty list disables it.

commands:
  - pattern: 'rm\s+-rf\s+/'
    description: Recursive delete from root
  - pattern: 'rm\s+-rf\s+~'
    description: Recursive delete from home
  - pattern: 'rm\s+-rf\s+\.(\s|$)'
    description: Recursive delete from current dir
  - pattern: 'chmod\s+-R\s+777\s+/'
    description: World-writable permissions on system
  - pattern: 'mkfs\.'
    description: Filesystem format
  - pattern: 'dd\s+if=.*of=/dev/'
    description: Direct disk write
  - pattern: '>\s*/dev/sd'
    description: Redirect to disk device
  - pattern: 'find\s+.*-type\s+f\s+-delete'
    description: Mass file deletion
  - pattern: 'git\s+reset\s+--hard'
    description: Discard uncommitted work
  - pattern: 'curl.*\|\s*(?:ba)?sh'
    description: Pipe curl to shell
  - pattern: 'wget.*\|\s*(?:ba)?sh'
    description: Pipe wget to shell

protected_paths:
  - pattern: '\.env$'
    description: Environment file
  - pattern: '\.env\.local$'
    description: Local environment file
  - pattern: '\.env\.production$'
    description: Production environment file
  - pattern: 'credentials'
    description: Credentials file
  - pattern: 'secrets?\.json'
    description: Secrets file
  - pattern: '\.pem$'
    description: PEM certificate or key
  - pattern: '\.key$'
    description: Private key

allowed_paths:
  - pattern: '\.env\.sample$'
    description: Sample environment file
  - pattern: '\.env\.example$'
    description: Example environment file
  - pattern: '\.env\.template$'
    description: Environment template
`
}
