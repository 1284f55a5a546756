// Package runinfo captures run provenance and derives output file names.
package runinfo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Info keys.
const (
	KeyExecCommand   = "exec command"
	KeyGitHash       = "git hash"
	KeyFileExecuted  = "file executed"
	KeySchedulerHash = "scheduler git hash"
	KeyRunID         = "run id"
)

// NotInGitRepo is recorded as the git hash when it cannot be resolved.
const NotInGitRepo = "Not in git repo"

const (
	daysPerYear       = 365.25
	schedulerHeadFile = ".git/refs/heads/main"
)

// Info is the provenance written alongside a run's output.
type Info map[string]string

// GitRunner resolves the commit checked out in a directory.
type GitRunner interface {
	Head(ctx context.Context, dir string) (string, error)
}

// ExecGit shells out to the git binary.
type ExecGit struct{}

// Head runs `git rev-parse HEAD` in dir.
func (ExecGit) Head(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Options controls SetRunInfo. Zero values use the running process.
type Options struct {
	DBRoot        string   // explicit output root; empty derives it from Args[0]
	FileEnd       string   // version suffix appended after the root
	OutDir        string   // output directory
	Args          []string // argument vector; defaults to os.Args
	WorkDir       string   // where the git hash is resolved; defaults to the current directory
	SchedulerRepo string   // checkout whose main-branch hash is recorded, if set
	Git           GitRunner
	Executable    func() (string, error) // defaults to os.Executable
	Logger        *slog.Logger
}

// SetRunInfo returns the output file root and the run's provenance. Lookup
// failures never fail the run: the git hash falls back to NotInGitRepo and
// the scheduler hash is left out.
func SetRunInfo(ctx context.Context, opts Options) (string, Info) {
	args := opts.Args
	if len(args) == 0 {
		args = os.Args
	}
	git := opts.Git
	if git == nil {
		git = ExecGit{}
	}
	executable := opts.Executable
	if executable == nil {
		executable = os.Executable
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info := Info{
		KeyExecCommand: strings.Join(args, " "),
		KeyRunID:       uuid.NewString(),
	}

	if hash, err := git.Head(ctx, opts.WorkDir); err != nil || hash == "" {
		logger.Debug("git hash unavailable", "error", err)
		info[KeyGitHash] = NotInGitRepo
	} else {
		info[KeyGitHash] = hash
	}

	if path, err := resolveExecutable(executable); err != nil {
		logger.Warn("could not resolve executable path", "error", err)
		info[KeyFileExecuted] = args[0]
	} else {
		info[KeyFileExecuted] = path
	}

	if opts.SchedulerRepo != "" {
		data, err := os.ReadFile(filepath.Join(opts.SchedulerRepo, schedulerHeadFile))
		if err != nil {
			logger.Debug("scheduler git hash unavailable", "repo", opts.SchedulerRepo, "error", err)
		} else if hash := strings.TrimSpace(string(data)); hash != "" {
			info[KeySchedulerHash] = hash
		}
	}

	return FileRoot(opts.OutDir, opts.DBRoot, opts.FileEnd, args[0]), info
}

// FileRoot joins outDir with root + "_" + fileEnd. An empty root falls back
// to the program's basename without its extension.
func FileRoot(outDir, root, fileEnd, program string) string {
	if root == "" {
		base := filepath.Base(program)
		root = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return filepath.Join(outDir, root+"_"+fileEnd)
}

func resolveExecutable(executable func() (string, error)) (string, error) {
	path, err := executable()
	if err != nil {
		return "", err
	}
	if path, err = filepath.Abs(path); err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(path)
}

// Years converts a survey length in days to whole years, rounding halves to
// even.
func Years(surveyLengthDays float64) int {
	return int(math.RoundToEven(surveyLengthDays / daysPerYear))
}

// DBFilename names the output database for a file root and survey length.
func DBFilename(fileroot string, years int) string {
	return fmt.Sprintf("%s%dyrs.db", fileroot, years)
}
