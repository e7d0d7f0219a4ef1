package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/multimediallc/mixedcallstack/internal/app"
	"github.com/multimediallc/mixedcallstack/internal/config"
	"github.com/multimediallc/mixedcallstack/internal/discovery"
	f "github.com/multimediallc/mixedcallstack/pkg/functional"
	"github.com/multimediallc/mixedcallstack/pkg/pmip"
	"github.com/multimediallc/mixedcallstack/pkg/ranges"
	"github.com/urfave/cli/v2"
)

func main() {
	var configDir string
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "Print version",
	}
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Println(cCtx.App.Version)
	}
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Directory holding " + config.FileName,
		Destination: &configDir,
	}
	cliApp := &cli.App{
		Name:        "mixedcallstack-cli",
		Usage:       "CLI tool for working with JIT side files",
		Version:     "v0.1.0.dev",
		Description: "",
		Commands: []*cli.Command{
			{
				Name:        "resolve",
				Aliases:     []string{"r"},
				Usage:       "Resolve one or more instruction pointers",
				UsageText:   "mixedcallstack-cli resolve [options] <addr1> [addr2] [addr3]...",
				Description: "Resolve instruction pointers against side files. Addresses are read from the arguments or, when none are given, from piped stdin.",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringSliceFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Side file to read, may be repeated",
					},
					&cli.IntFlag{
						Name:    "pid",
						Aliases: []string{"p"},
						Usage:   "Read the newest side files of this process",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Directory searched with --pid (default from config)",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "default",
						Usage: "Output format.  Allowed values are: " + formatList(resolveFormats),
					},
					&cli.BoolFlag{
						Name:  "color",
						Usage: "Highlight resolved names",
					},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"), resolveFormats)
					if err != nil {
						return err
					}
					targets := cCtx.Args().Slice()
					if len(targets) == 0 && isStdinPiped() {
						if targets, err = scanStdin(); err != nil {
							return err
						}
					}
					if len(targets) == 0 {
						return fmt.Errorf("at least one address is required")
					}
					conf, err := loadConfig(configDir)
					if err != nil {
						return err
					}
					files := cCtx.StringSlice("file")
					if pid := cCtx.Int("pid"); pid > 0 {
						dir := cCtx.String("dir")
						if dir == "" {
							dir = conf.SearchDir
						}
						found, err := pidFiles(dir, conf.FilePrefix, pid)
						if err != nil {
							return err
						}
						files = append(files, found...)
					}
					color := conf.Color || cCtx.Bool("color")
					return resolveAddresses(files, targets, format, color)
				},
			},
			{
				Name:        "dump",
				Aliases:     []string{"d"},
				Usage:       "Print every range of one or more side files",
				UsageText:   "mixedcallstack-cli dump [options] <file1> [file2] [file3]...",
				Description: "Print the ranges of the given side files, current ranges first and legacy ranges after, each sorted by start address.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "default",
						Usage: "Output format.  Allowed values are: " + formatList(dumpFormats),
					},
				},
				Action: func(cCtx *cli.Context) error {
					format, err := validateFormat(cCtx.String("format"), dumpFormats)
					if err != nil {
						return err
					}
					targets := cCtx.Args().Slice()
					if len(targets) == 0 {
						return fmt.Errorf("at least one side file is required")
					}
					return dumpFiles(targets, format)
				},
			},
			{
				Name:        "verify",
				Aliases:     []string{"v"},
				Usage:       "Verify one or more side files",
				UsageText:   "mixedcallstack-cli verify <file1> [file2] [file3]...",
				Description: "Check the header and every line of the given side files. Lines with an unexpected shape are reported; any format error fails the command.",
				Action: func(cCtx *cli.Context) error {
					targets := cCtx.Args().Slice()
					if len(targets) == 0 {
						return fmt.Errorf("at least one side file is required")
					}
					return verifyFiles(targets)
				},
			},
			{
				Name:        "scan",
				Aliases:     []string{"s"},
				Usage:       "List side files under a directory",
				UsageText:   "mixedcallstack-cli scan [options] [directory]",
				Description: "Recursively list side files under the directory (default from config), grouped by process. Only the newest file per domain is listed unless --all is set.",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Side file name prefix (default from config)",
					},
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "List superseded files too",
					},
				},
				Action: func(cCtx *cli.Context) error {
					conf, err := loadConfig(configDir)
					if err != nil {
						return err
					}
					root := conf.SearchDir
					if cCtx.NArg() > 0 {
						root = cCtx.Args().First()
					}
					prefix := cCtx.String("prefix")
					if prefix == "" {
						prefix = conf.FilePrefix
					}
					return scanFiles(root, prefix, cCtx.Bool("all"))
				},
			},
		},
	}

	err := cliApp.Run(os.Args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(dir string) (*config.Config, error) {
	conf, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %s", config.FileName, err)
	}
	return conf, nil
}

func pidFiles(dir string, prefix string, pid int) ([]string, error) {
	if dirStat, err := os.Stat(dir); err != nil || !dirStat.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	names, err := discovery.Glob(dir, prefix, pid, os.Stderr)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no side files for process %d in %s", pid, dir)
	}
	return f.Map(discovery.Newest(names), func(name discovery.Name) string { return name.Path }), nil
}

type Resolution struct {
	Resolved bool   `json:"resolved"`
	Name     string `json:"name,omitempty"`
	File     string `json:"file,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Offset   uint64 `json:"offset"`
}

func newResolution(iv ranges.Interval, ok bool, addr uint64) Resolution {
	if !ok {
		return Resolution{}
	}
	return Resolution{
		Resolved: true,
		Name:     iv.Name,
		File:     iv.File,
		Start:    fmt.Sprintf("%016X", iv.Start),
		End:      fmt.Sprintf("%016X", iv.End),
		Offset:   iv.Offset(addr),
	}
}

func (r Resolution) describe(color bool) string {
	if !r.Resolved {
		if color {
			return ansi.Color("??", "red")
		}
		return "??"
	}
	name := r.Name
	if color {
		name = ansi.Color(name, "green+b")
	}
	desc := fmt.Sprintf("%s+0x%x", name, r.Offset)
	if r.File != "" {
		desc += " (" + r.File + ")"
	}
	return desc
}

func resolveAddresses(files []string, targets []string, format OutputFormat, color bool) error {
	files = f.RemoveDuplicates(files)
	if len(files) == 0 {
		return fmt.Errorf("at least one side file is required, use --file or --pid")
	}

	resolver := pmip.NewResolver(pmip.WithWarningWriter(os.Stderr))
	defer func() {
		_ = resolver.Reset()
	}()
	for _, file := range files {
		if err := resolver.RegisterFile(file); err != nil {
			return fmt.Errorf("error reading side file: %s", err)
		}
	}
	if err := resolver.Flush(); err != nil {
		return fmt.Errorf("error reading side file: %s", err)
	}

	results := make([]Resolution, len(targets))
	for i, target := range targets {
		frame, err := app.ParseFrame(target)
		if err != nil {
			return err
		}
		iv, ok, err := resolver.Lookup(frame.Address)
		if err != nil {
			return fmt.Errorf("error reading side file: %s", err)
		}
		results[i] = newResolution(iv, ok, frame.Address)
	}

	switch format {
	case FormatJSON:
		resultMap := make(map[string]Resolution, len(targets))
		for i, target := range targets {
			resultMap[target] = results[i]
		}
		return printJSON(resultMap)
	case FormatOneLine:
		fmt.Println(strings.Join(f.Map(results, func(r Resolution) string { return r.describe(color) }), ", "))
	default:
		for i, target := range targets {
			fmt.Printf("%s: %s\n", target, results[i].describe(color))
		}
	}
	return nil
}

type Dump struct {
	Current []string   `json:"current"`
	Legacy  []string   `json:"legacy"`
	Stats   pmip.Stats `json:"stats"`
}

func dumpFiles(targets []string, format OutputFormat) error {
	ingestor := pmip.NewIngestor(os.Stderr)
	defer func() {
		_ = ingestor.DisposeAll()
	}()
	for _, target := range f.RemoveDuplicates(targets) {
		if err := ingestor.Register(target); err != nil {
			return fmt.Errorf("error reading side file: %s", err)
		}
	}
	if err := ingestor.Flush(); err != nil {
		return fmt.Errorf("error reading side file: %s", err)
	}
	current := ingestor.Intervals(pmip.KindCurrent)
	legacy := ingestor.Intervals(pmip.KindLegacy)

	switch format {
	case FormatJSON:
		dump := Dump{
			Current: f.Map(current, func(iv ranges.Interval) string { return pmip.FormatLine(iv, false) }),
			Legacy:  f.Map(legacy, func(iv ranges.Interval) string { return pmip.FormatLine(iv, true) }),
			Stats:   ingestor.Stats(),
		}
		return printJSON(dump)
	case FormatTSV:
		for _, iv := range current {
			fmt.Println(tsvRow(pmip.KindCurrent, iv))
		}
		for _, iv := range legacy {
			fmt.Println(tsvRow(pmip.KindLegacy, iv))
		}
	case FormatOneLine:
		for _, iv := range slices.Concat(current, legacy) {
			fmt.Println(iv.String())
		}
	default:
		for _, iv := range current {
			fmt.Println(pmip.FormatLine(iv, false))
		}
		for _, iv := range legacy {
			fmt.Println(pmip.FormatLine(iv, true))
		}
	}
	return nil
}

func verifyFiles(targets []string) error {
	errorBuffer := bytes.NewBuffer([]byte{})
	for _, target := range targets {
		warningBuffer := bytes.NewBuffer([]byte{})
		ingestor := pmip.NewIngestor(warningBuffer)
		err := ingestor.Register(target)
		if err == nil {
			err = ingestor.Flush()
		}
		if err != nil {
			_, _ = fmt.Fprintf(errorBuffer, "%s\n", err)
			continue
		}
		stats := ingestor.Stats()
		header, _ := ingestor.Header(target)
		_ = ingestor.DisposeAll()

		_, _ = io.Copy(os.Stdout, warningBuffer)
		fmt.Printf("%s: %s %.1f, %d current, %d legacy, %d skipped\n",
			target, header.Label, header.Version, stats.Current, stats.Legacy, stats.Skipped)
	}
	if errorBuffer.Len() > 0 {
		return fmt.Errorf("\n%s", errorBuffer.String())
	}
	return nil
}

func scanFiles(root string, prefix string, all bool) error {
	names, err := discovery.Walk(root, prefix)
	if err != nil {
		return fmt.Errorf("error walking directory: %s", err)
	}
	if !all {
		names = discovery.Newest(names)
	}

	byPID := f.GroupBy(names, func(name discovery.Name) int { return name.PID })
	pids := make([]int, 0, len(byPID))
	for pid := range byPID {
		pids = append(pids, pid)
	}
	slices.Sort(pids)

	for i, pid := range pids {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("%d:\n", pid)
		for _, name := range byPID[pid] {
			fmt.Printf("  %s (sequence %d, domain %d)\n", name.Path, name.Sequence, name.Domain)
		}
	}
	return nil
}
