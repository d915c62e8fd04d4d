// Command stagefs stages file changes described by YAML manifests and
// applies them to a directory, touching only files that actually differ.
//
//	stagefs -C ./project apply files.yml
//	stagefs -C ./project plan files.yml
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/absfs/stagefs"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "stagefs: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	app := kingpin.New("stagefs", "Stage file changes from YAML manifests and apply them with minimal I/O.")
	app.HelpFlag.Short('h')
	baseDir := app.Flag("base", "Directory manifest paths are relative to.").Short('C').Default(cfg.BaseDir).String()
	verbose := app.Flag("verbose", "Log debug output.").Short('v').Bool()

	applyCmd := app.Command("apply", "Stage manifests and write the changes to disk.")
	dryRun := applyCmd.Flag("dry-run", "Print the changes without writing them.").Short('n').Bool()
	applyManifests := applyCmd.Arg("manifest", "YAML manifest files, applied in order.").Required().ExistingFiles()

	planCmd := app.Command("plan", "Print the changes apply would make.")
	planManifests := planCmd.Arg("manifest", "YAML manifest files, applied in order.").Required().ExistingFiles()

	cmd, err := app.Parse(args)
	if err != nil {
		return err
	}

	if *verbose {
		cfg.LogLevel = "debug"
	}
	logger := NewLogger(cfg, stderr)

	switch cmd {
	case applyCmd.FullCommand():
		return apply(*baseDir, *applyManifests, *dryRun, stdout, logger)
	case planCmd.FullCommand():
		return apply(*baseDir, *planManifests, true, stdout, logger)
	}
	return nil
}

// summary accumulates flush events for the closing report.
type summary struct {
	changes int
	written uint64
}

func (s *summary) String() string {
	if s.changes == 0 {
		return "nothing to do"
	}
	noun := "changes"
	if s.changes == 1 {
		noun = "change"
	}
	return fmt.Sprintf("%d %s, %s written", s.changes, noun, humanize.Bytes(s.written))
}

func apply(baseDir string, manifests []string, dryRun bool, stdout io.Writer, logger *slog.Logger) error {
	var sum summary
	sfs := stagefs.New(baseDir,
		stagefs.WithLogger(logger),
		stagefs.WithEventHandler(func(e stagefs.Event) {
			fmt.Fprintln(stdout, e.String())
			sum.changes++
			sum.written += uint64(e.Size)
		}),
	)

	for _, path := range manifests {
		m, err := LoadManifest(path)
		if err != nil {
			return err
		}
		if err := m.Stage(sfs); err != nil {
			return err
		}
		logger.Info("staged manifest", "manifest", path, "files", len(m.Files), "version", sfs.Version())
	}

	if dryRun {
		changes, err := sfs.Plan()
		if err != nil {
			return err
		}
		for _, c := range changes {
			for _, e := range c.Events() {
				fmt.Fprintln(stdout, e.String())
			}
		}
		fmt.Fprintf(stdout, "%d paths would change\n", len(changes))
		return nil
	}

	if err := sfs.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, sum.String())
	return nil
}
