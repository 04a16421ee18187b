// Package provenance collects the default jux.* metadata describing the
// environment a fixture set was prepared in: host identity, tool version,
// VCS state of the project, and CI build coordinates.
package provenance

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/jrjsmrtn/juxfix"
)

// Version is stamped into jux.tool_version. Overridden at release time via
// -ldflags.
var Version = "0.1.0-dev"

const unknown = "unknown"

// Collect gathers the default jux.* metadata mapping for projectDir, in a
// fixed key order. Sources that cannot be read (no git repository,
// restricted environment) degrade to placeholder values; Collect never
// fails.
func Collect(projectDir string) juxfix.Metadata {
	md := juxfix.Metadata{}
	md.Set("jux.hostname", hostname())
	md.Set("jux.username", username())
	md.Set("jux.platform", platform())
	md.Set("jux.tool_version", Version)
	md.Set("jux.timestamp", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	md.Set("jux.project_name", projectName(projectDir))

	commit, branch, status, remote := gitInfo(projectDir)
	md.Set("jux.git_commit", commit)
	md.Set("jux.git_branch", branch)
	md.Set("jux.git_status", status)
	md.Set("jux.git_remote", remote)

	provider, buildID, buildURL := ciInfo()
	md.Set("jux.ci_provider", provider)
	md.Set("jux.ci_build_id", buildID)
	md.Set("jux.ci_build_url", buildURL)
	return md
}

func hostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return unknown
}

func username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return unknown
}

func platform() string {
	if info, err := host.Info(); err == nil && info.OS != "" {
		return fmt.Sprintf("%s-%s-%s", info.OS, info.KernelVersion, info.KernelArch)
	}
	return runtime.GOOS + "-" + runtime.GOARCH
}

func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return unknown
	}
	return filepath.Base(abs)
}

func gitInfo(dir string) (commit, branch, status, remote string) {
	commit, branch, status, remote = unknown, unknown, unknown, unknown

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return
	}
	if head, err := repo.Head(); err == nil {
		commit = head.Hash().String()
		if head.Name().IsBranch() {
			branch = head.Name().Short()
		}
	}
	if wt, err := repo.Worktree(); err == nil {
		if st, err := wt.Status(); err == nil {
			if st.IsClean() {
				status = "clean"
			} else {
				status = "dirty"
			}
		}
	}
	if rem, err := repo.Remote(git.DefaultRemoteName); err == nil {
		if urls := rem.Config().URLs; len(urls) > 0 {
			remote = urls[0]
		}
	}
	return
}

func ciInfo() (provider, buildID, buildURL string) {
	switch {
	case os.Getenv("GITHUB_ACTIONS") == "true":
		provider = "github"
		buildID = os.Getenv("GITHUB_RUN_ID")
		server, repo := os.Getenv("GITHUB_SERVER_URL"), os.Getenv("GITHUB_REPOSITORY")
		if server != "" && repo != "" && buildID != "" {
			buildURL = fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, buildID)
		}
	case os.Getenv("GITLAB_CI") == "true":
		provider = "gitlab"
		buildID = os.Getenv("CI_PIPELINE_ID")
		buildURL = os.Getenv("CI_PIPELINE_URL")
	case os.Getenv("JENKINS_URL") != "":
		provider = "jenkins"
		buildID = os.Getenv("BUILD_NUMBER")
		buildURL = os.Getenv("BUILD_URL")
	case os.Getenv("CIRCLECI") == "true":
		provider = "circleci"
		buildID = os.Getenv("CIRCLE_BUILD_NUM")
		buildURL = os.Getenv("CIRCLE_BUILD_URL")
	default:
		return "none", "", ""
	}
	if buildID == "" {
		buildID = unknown
	}
	if buildURL == "" {
		buildURL = unknown
	}
	return
}
