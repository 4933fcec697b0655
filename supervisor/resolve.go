package supervisor

import (
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"
	"github.com/kballard/go-shellquote"

	"github.com/vellum-studio/vellum/config"
	"github.com/vellum-studio/vellum/errors"
)

// agentCandidates are the binary names probed in order when no explicit
// command is configured.
var agentCandidates = []string{"vellum-agent", "vellum-mcp-agent", "canvas-agent"}

// resolveBinary decides which agent binary to spawn. An explicit
// agent.command wins; otherwise candidates are probed in the configured
// path, next to the running executable, then on $PATH.
func resolveBinary(cfg config.AgentConfig) (string, []string, error) {
	if cfg.Command != "" {
		parts, err := shellquote.Split(cfg.Command)
		if err != nil {
			return "", nil, errors.Wrap(err, "parsing agent.command")
		}
		if len(parts) == 0 {
			return "", nil, errors.New("agent.command is empty")
		}
		return parts[0], parts[1:], nil
	}

	var dirs []string
	if cfg.Path != "" {
		expanded, err := expandPath(cfg.Path)
		if err != nil {
			return "", nil, errors.Wrap(err, "resolving agent.path")
		}
		dirs = append(dirs, expanded)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		for _, candidate := range agentCandidates {
			path := filepath.Join(dir, candidate)
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.Mode()&0111 == 0 {
				continue
			}
			return path, nil, nil
		}
	}

	for _, candidate := range agentCandidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil, nil
		}
	}

	return "", nil, errors.Newf("no agent binary found (tried %s)", strings.Join(agentCandidates, ", "))
}

// expandPath handles ~, relative paths, and normalizes through go-getter's
// detection so configured paths behave like every other path input.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		path = filepath.Join(home, path[2:])
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		return home, nil
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}

	detected, err := getter.Detect(path, pwd, getter.Detectors)
	if err != nil {
		return "", errors.Wrap(err, "invalid path")
	}

	u, err := url.Parse(detected)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse path")
	}

	if u.Scheme == "file" {
		return u.Path, nil
	}
	if u.Scheme == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", errors.Wrap(err, "failed to make absolute path")
		}
		return abs, nil
	}

	return "", errors.Newf("unsupported path scheme: %s (expected a local directory)", u.Scheme)
}
