package subspace

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/subspace/lvl"
	"github.com/bodgit/subspace/lvz"
	"github.com/bodgit/subspace/radar"
)

const (
	extLevel   = ".lvl"
	extPackage = ".lvz"

	// Anything bigger than this is not a level or package
	maxFileSize = 16 << (10 * 2)

	// PreviewSize is the side length of the stored level previews.
	PreviewSize = 128
)

func (w *Workshop) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			switch strings.ToLower(filepath.Ext(file)) {
			case extLevel, extPackage:
			default:
				return nil
			}

			if info.Size() > maxFileSize {
				w.logger.Printf("Skipping \"%s\", too large\n", file)
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (w *Workshop) addFile(file string) error {
	b, crc, err := readFile(file)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case extLevel:
		m, err := lvl.Decode(b, w.logger)
		if err != nil {
			w.logger.Printf("Skipping \"%s\": %v\n", file, err)
			return nil
		}
		preview := new(bytes.Buffer)
		if err := png.Encode(preview, radar.Render(m.Tiles, PreviewSize)); err != nil {
			return err
		}
		s := SummarizeLevel(m)
		s.Path, s.CRC = file, crc
		return w.db.AddLevel(s, preview.Bytes())
	case extPackage:
		p, err := lvz.Decode(b, w.logger)
		if err != nil {
			w.logger.Printf("Skipping \"%s\": %v\n", file, err)
			return nil
		}
		s := SummarizePackage(p)
		s.Path, s.CRC = file, crc
		return w.db.AddPackage(s)
	}

	return nil
}

func (w *Workshop) fileWorker(ctx context.Context, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := w.addFile(file); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks path and adds every level and object package it finds to the
// catalog. Files that fail to decode are logged and skipped.
func (w *Workshop) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := w.findFiles(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < w.workers; i++ {
		errc, err := w.fileWorker(ctx, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
