//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// run invokes the built CLI with the given arguments, streaming its output.
func run(args ...string) error {
	bin := filepath.Join(binDir, binName)
	cmd := exec.Command(bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", binName, args[0], err)
	}
	return nil
}

// Rss collects today's article metadata from the journal feeds.
func Rss() error {
	mg.Deps(Build)
	return run("rss")
}

// Springer downloads Nature-family full text for the collected metadata.
func Springer() error {
	mg.Deps(Build)
	return run("springer")
}

// Elsevier downloads Cell Press full text for the collected metadata.
func Elsevier() error {
	mg.Deps(Build)
	return run("elsevier")
}

// SciUrls regenerates the aria2c input file for Science PDFs.
func SciUrls() error {
	mg.Deps(Build)
	return run("sci-urls")
}

// Harvest runs the daily pipeline: feed collection, then both API downloaders,
// then the Science URL conversion.
func Harvest() error {
	mg.Deps(Build)
	for _, sub := range []string{"rss", "springer", "elsevier", "sci-urls"} {
		if err := run(sub); err != nil {
			return err
		}
	}
	return nil
}
