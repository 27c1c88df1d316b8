package shared

import (
	"errors"
	"os/exec"
	"slices"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCmd
	t.Cleanup(func() {
		getRuntime, startCmd = origRuntime, origStart
	})

	t.Run("Per Platform Command", func(t *testing.T) {
		tc := []struct {
			goos string
			want string
		}{
			{"darwin", "open"},
			{"linux", "xdg-open"},
			{"windows", "rundll32"},
		}

		for _, tt := range tc {
			var started *exec.Cmd
			getRuntime = func() string { return tt.goos }
			startCmd = func(cmd *exec.Cmd) error {
				started = cmd
				return nil
			}

			if err := OpenBrowser("https://example.com"); err != nil {
				t.Fatalf("%s: expected no error, got %v", tt.goos, err)
			}
			if started == nil || started.Args[0] != tt.want {
				t.Errorf("%s: expected %s, got %v", tt.goos, tt.want, started)
			}
			if !slices.Contains(started.Args, "https://example.com") {
				t.Errorf("%s: expected url in args, got %v", tt.goos, started.Args)
			}
		}
	})

	t.Run("Unsupported Platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		getRuntime = func() string { return "linux" }
		startCmd = func(*exec.Cmd) error { return errors.New("boom") }
		if err := OpenBrowser("https://example.com"); err == nil {
			t.Error("expected start error to propagate")
		}
	})
}
