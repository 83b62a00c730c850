package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hookgate/internal/audit"
	"github.com/ppiankov/hookgate/internal/client"
	"github.com/ppiankov/hookgate/internal/gate"
	"github.com/ppiankov/hookgate/internal/rules"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check project readiness and diagnose configuration issues",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	proj, err := loadProject("")
	if err != nil {
		// A broken config is itself a finding.
		return printChecks(cmd, []checkResult{{label: "config", detail: err.Error(), fix: "hookgate init --force"}})
	}
	defer proj.close()
	return printChecks(cmd, doctorChecks(cmd.Context(), proj))
}

func doctorChecks(ctx context.Context, proj *project) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	var checks []checkResult

	if execPath, _ := os.Executable(); execPath != "" {
		checks = append(checks, checkResult{label: "hookgate binary", ok: true, detail: fmt.Sprintf("%s (v%s)", execPath, version)})
	} else {
		checks = append(checks, checkResult{label: "hookgate binary", detail: "cannot determine executable path"})
	}

	configFile := configPath
	if configFile == "" {
		configFile = gate.ConfigPath(proj.root)
	}
	if _, err := os.Stat(configFile); err == nil {
		checks = append(checks, checkResult{label: "config", ok: true, detail: configFile})
	} else {
		checks = append(checks, checkResult{label: "config", detail: "missing, using defaults", fix: "hookgate init"})
	}

	rulesPath := proj.cfg.Rules
	if rulesPath == "" {
		rulesPath = rules.DefaultPath()
	}
	if set, err := rules.Load(rulesPath); err != nil {
		checks = append(checks, checkResult{label: "rules", detail: err.Error()})
	} else if _, statErr := os.Stat(rulesPath); statErr != nil {
		checks = append(checks, checkResult{label: "rules", ok: true, detail: "built-in defaults " + set.Hash()})
	} else {
		checks = append(checks, checkResult{label: "rules", ok: true, detail: fmt.Sprintf("%s %s", rulesPath, set.Hash())})
	}

	if v := audit.Verify(proj.cfg.AuditLog); v.Valid {
		checks = append(checks, checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%d records, chain intact", v.Lines)})
	} else {
		checks = append(checks, checkResult{label: "audit log", detail: fmt.Sprintf("line %d: %s", v.ErrorLine, v.Error), fix: "hookgate audit verify"})
	}

	if p, err := exec.LookPath("git"); err == nil {
		checks = append(checks, checkResult{label: "git", ok: true, detail: p})
	} else {
		checks = append(checks, checkResult{label: "git", detail: "not on PATH; completion checks lose git evidence"})
	}

	if cmdLine := proj.cfg.Lint.Command; len(cmdLine) > 0 {
		if p, err := exec.LookPath(cmdLine[0]); err == nil {
			checks = append(checks, checkResult{label: "linter", ok: true, detail: p})
		} else {
			checks = append(checks, checkResult{label: "linter", detail: cmdLine[0] + " not on PATH; lint checks are skipped"})
		}
	}

	if proj.cfg.SessionDB != "" {
		if _, err := os.Stat(proj.cfg.SessionDB); err == nil {
			checks = append(checks, checkResult{label: "session db", ok: true, detail: proj.cfg.SessionDB})
		} else {
			checks = append(checks, checkResult{label: "session db", ok: true, detail: "not created yet"})
		}
	}

	if proj.cfg.Server != "" {
		checks = append(checks, serverCheck(ctx, proj))
	}
	return checks
}

func serverCheck(ctx context.Context, proj *project) checkResult {
	c, err := client.New(proj.cfg.Server, proj.failMode())
	if err != nil {
		return checkResult{label: "server", detail: err.Error()}
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	st, err := c.Status(ctx)
	if err != nil {
		return checkResult{label: "server", detail: fmt.Sprintf("%s unreachable (fail_mode %s)", proj.cfg.Server, proj.cfg.FailMode), fix: "hookgate serve"}
	}
	if st.Root != proj.root {
		return checkResult{label: "server", detail: fmt.Sprintf("%s serves %s, not this project", proj.cfg.Server, st.Root)}
	}
	return checkResult{label: "server", ok: true, detail: fmt.Sprintf("%s %s", proj.cfg.Server, st.PolicyHash)}
}

func printChecks(cmd *cobra.Command, checks []checkResult) error {
	out := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-16s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(out, line)
	}

	if hasFailures {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
