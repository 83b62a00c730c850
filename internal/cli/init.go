package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/rules"
)

var (
	initRulesPath string
	initForce     bool
)

func init() {
	initCmd.Flags().StringVar(&initRulesPath, "rules-file", "", "Where to write the rules file (default: ~/.hookgate/rules.yaml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap hookgate configuration for a project",
	Long: `Creates .hookgate/config.yaml in the project root (--root or the working
directory) and the default rules file shared by all projects.

Existing files are kept unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := initRoot()
	if err != nil {
		return err
	}
	rulesPath := initRulesPath
	if rulesPath == "" {
		rulesPath = rules.DefaultPath()
	}
	if rulesPath == "" {
		return fmt.Errorf("cannot determine home directory; pass --rules-file")
	}

	var created []string

	configFile := gate.ConfigPath(root)
	if wrote, err := writeIfMissing(configFile, gate.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, configFile)
	}

	if wrote, err := writeIfMissing(rulesPath, rules.DefaultYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, rulesPath)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "hookgate init complete.")
	fmt.Fprintln(out)
	if len(created) > 0 {
		fmt.Fprintln(out, "Created:")
		for _, path := range created {
			fmt.Fprintf(out, "  %s\n", path)
		}
	} else {
		fmt.Fprintln(out, "All files already exist (use --force to overwrite).")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Wire the hooks into your agent host settings:")
	fmt.Fprint(out, hookSettingsHint)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Verify:")
	fmt.Fprintln(out, "  hookgate doctor")
	return nil
}

const hookSettingsHint = `  {
    "hooks": {
      "PreToolUse":       [{"matcher": "Bash|Read|Write|Edit", "hooks": [{"type": "command", "command": "hookgate hook pre-tool-use"}]}],
      "PostToolUse":      [{"matcher": "Write|Edit", "hooks": [{"type": "command", "command": "hookgate hook post-tool-use"}]}],
      "UserPromptSubmit": [{"hooks": [{"type": "command", "command": "hookgate hook user-prompt-submit"}]}],
      "Stop":             [{"hooks": [{"type": "command", "command": "hookgate hook stop --check setup"}]}]
    }
  }
`

// initRoot does not walk up: init creates the marker directory.
func initRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("determine working directory: %w", err)
	}
	return wd, nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
