package main

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/subspace"
	"github.com/bodgit/subspace/bitmap"
	"github.com/bodgit/subspace/lvl"
	"github.com/bodgit/subspace/lvz"
	"github.com/bodgit/subspace/radar"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const defaultDB = "subspace.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func quantizer(name string) (draw.Quantizer, error) {
	switch name {
	case "", "reduce":
		return nil, nil
	case "median":
		return &quantize.MedianCutQuantizer{}, nil
	default:
		return nil, fmt.Errorf("unknown quantizer %q", name)
	}
}

func writeTileset(c *cli.Context, file, out string) error {
	m, err := lvl.Open(file, newLogger(c))
	if err != nil {
		return err
	}
	if m.Tileset == nil {
		return fmt.Errorf("%s uses the default tileset", file)
	}

	bm := m.Tileset
	if c.Bool("transparent") {
		b, err := ioutil.ReadFile(file)
		if err != nil {
			return err
		}
		if bm, err = bitmap.Parse(b, &bitmap.DecodeOptions{TransparentBlack: true}); err != nil {
			return err
		}
	}

	var img image.Image = bm.Image()
	if p := bm.Paletted(); p != nil {
		img = p
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(out)) {
	case ".png":
		err = png.Encode(f, img)
	case ".bmp":
		q, qerr := quantizer(c.String("quantize"))
		if qerr != nil {
			return qerr
		}
		err = bitmap.Encode(f, img, &bitmap.Options{BitCount: c.Int("bits"), Quantizer: q})
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(out))
	}
	if err != nil {
		return err
	}

	return f.Close()
}

func writePreview(c *cli.Context, file, out string) error {
	m, err := lvl.Open(file, newLogger(c))
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, radar.Render(m.Tiles, c.Int("size"))); err != nil {
		return err
	}
	return f.Close()
}

func replaceTileset(c *cli.Context, file, in string) error {
	logger := newLogger(c)

	m, err := lvl.Open(file, logger)
	if err != nil {
		return err
	}

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return err
	}

	q, err := quantizer(c.String("quantize"))
	if err != nil {
		return err
	}
	if m.Tileset, err = bitmap.FromImage(img, &bitmap.Options{BitCount: 8, Quantizer: q}); err != nil {
		return err
	}
	logger.Printf("Replacing tileset of \"%s\" with %dx%d image\n", file, m.Tileset.Width, m.Tileset.Height)

	return lvl.Create(file, m)
}

func extractPackage(c *cli.Context, file, dir string) error {
	logger := newLogger(c)

	p, err := lvz.Open(file, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, f := range p.Files {
		// Names are flat, refuse anything that tries to escape
		name := filepath.Base(filepath.Clean(strings.ReplaceAll(f.Name, "\\", string(os.PathSeparator))))
		if name != f.Name {
			logger.Printf("Writing \"%s\" as \"%s\"\n", f.Name, name)
		}
		target := filepath.Join(dir, name)
		if err := ioutil.WriteFile(target, f.Data, 0644); err != nil {
			return err
		}
		if err := os.Chtimes(target, f.Time, f.Time); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "subspace"
	app.Usage = "SubSpace level and object package utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	dbFlag := &cli.StringFlag{
		Name:    "db",
		EnvVars: []string{"SUBSPACE_DB"},
		Value:   filepath.Join(cwd, defaultDB),
		Usage:   "path to database",
	}

	quantizeFlag := &cli.StringFlag{
		Name:  "quantize",
		Value: "reduce",
		Usage: "palette reduction, reduce or median",
	}

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "scan",
			Usage:     "Scan filesystem and catalog levels and object packages",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				dbFlag,
				&cli.IntFlag{
					Name:    "workers",
					EnvVars: []string{"SUBSPACE_WORKERS"},
					Value:   subspace.DefaultWorkers,
					Usage:   "number of files to decode in parallel",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := subspace.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer w.Close()
				w.SetWorkers(c.Int("workers"))

				if err := w.Scan(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "list",
			Usage: "List catalogued levels and object packages",
			Flags: []cli.Flag{dbFlag},
			Action: func(c *cli.Context) error {
				w, err := subspace.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer w.Close()

				levels, err := w.Catalog().Levels()
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, l := range levels {
					fmt.Printf("%s %s %d tiles, %d regions\n", l.CRC, l.Path, l.Tiles, len(l.Regions))
				}

				packages, err := w.Catalog().Packages()
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, p := range packages {
					fmt.Printf("%s %s %d files, %d images\n", p.CRC, p.Path, len(p.Files), p.Images)
				}

				return nil
			},
		},
		{
			Name:      "find",
			Usage:     "Find catalogued levels containing a region",
			ArgsUsage: "REGION",
			Flags:     []cli.Flag{dbFlag},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				w, err := subspace.New(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer w.Close()

				matches, err := w.Catalog().FindRegion(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, m := range matches {
					fmt.Printf("%s %s (%d tiles)\n", m.Path, m.Region.Name, m.Region.Tiles)
				}

				return nil
			},
		},
		{
			Name:      "info",
			Usage:     "Describe a level",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := lvl.Open(c.Args().First(), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}

				s := subspace.SummarizeLevel(m)
				s.Path = c.Args().First()
				if err := printYAML(s); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "regions",
			Usage:     "List the regions of a level",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				m, err := lvl.Open(c.Args().First(), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}

				for _, r := range subspace.SummarizeLevel(m).Regions {
					var flags []string
					for _, f := range []struct {
						set  bool
						name string
					}{
						{r.Base, "base"},
						{r.NoAntiwarp, "no-antiwarp"},
						{r.NoWeapons, "no-weapons"},
						{r.NoFlagDrops, "no-flag-drops"},
						{r.AutoWarp != nil, "auto-warp"},
					} {
						if f.set {
							flags = append(flags, f.name)
						}
					}
					fmt.Printf("%q %d tiles %s\n", r.Name, r.Tiles, strings.Join(flags, ","))
				}

				return nil
			},
		},
		{
			Name:      "preview",
			Usage:     "Render a radar style overview of a level as PNG",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "size",
					Value: subspace.PreviewSize,
					Usage: "width and height in pixels, 0 for one pixel per tile",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := writePreview(c, c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "tileset",
			Usage:     "Export the tileset of a level as BMP or PNG",
			ArgsUsage: "FILE OUTPUT",
			Flags: []cli.Flag{
				quantizeFlag,
				&cli.IntFlag{
					Name:  "bits",
					Value: 8,
					Usage: "bits per pixel for BMP output, 8 or 24",
				},
				&cli.BoolFlag{
					Name:  "transparent",
					Usage: "treat black as transparent",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := writeTileset(c, c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "set-tileset",
			Usage:     "Replace the tileset of a level with an image",
			ArgsUsage: "FILE IMAGE",
			Flags:     []cli.Flag{quantizeFlag},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := replaceTileset(c, c.Args().Get(0), c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "lvz",
			Usage: "Object package commands",
			Subcommands: []*cli.Command{
				{
					Name:      "list",
					Usage:     "Describe an object package",
					ArgsUsage: "FILE",
					Action: func(c *cli.Context) error {
						if c.NArg() < 1 {
							cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
						}

						p, err := lvz.Open(c.Args().First(), newLogger(c))
						if err != nil {
							return cli.Exit(err, 1)
						}

						s := subspace.SummarizePackage(p)
						s.Path = c.Args().First()
						if err := printYAML(s); err != nil {
							return cli.Exit(err, 1)
						}

						return nil
					},
				},
				{
					Name:      "extract",
					Usage:     "Extract the files of an object package",
					ArgsUsage: "FILE DIRECTORY",
					Action: func(c *cli.Context) error {
						if c.NArg() < 2 {
							cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
						}

						if err := extractPackage(c, c.Args().Get(0), c.Args().Get(1)); err != nil {
							return cli.Exit(err, 1)
						}

						return nil
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
