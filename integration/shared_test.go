//go:build basic || database || integration

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedBinaryPath holds the path to a shared repowatch binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getRepowatchBinary returns the path to the repowatch binary, building it once if needed.
func getRepowatchBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "repowatch-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "repowatch")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		err = buildCmd.Run()
		if err != nil {
			panic(fmt.Sprintf("failed to build repowatch: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// runRepowatchCommand runs the shared binary with the given args from the project root.
func runRepowatchCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	binaryPath := getRepowatchBinary()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = "../" // Run from project root
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), err
}

// makeFixtureRepo creates a throwaway git repository with a few commits and
// returns its path. Tests are skipped when git is unavailable.
func makeFixtureRepo(t *testing.T, commits int) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runGit := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Integration Test",
			"GIT_AUTHOR_EMAIL=it@example.com",
			"GIT_COMMITTER_NAME=Integration Test",
			"GIT_COMMITTER_EMAIL=it@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}

	runGit("init")
	for i := 1; i <= commits; i++ {
		file := filepath.Join(dir, fmt.Sprintf("file%d.txt", i))
		if err := os.WriteFile(file, []byte(fmt.Sprintf("content %d\n", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		runGit("add", ".")
		runGit("commit", "-m", fmt.Sprintf("commit %d", i))
	}

	return dir
}
