package service

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
)

const macOSMetadataDir = "__MACOSX"

// DiscoverFolder walks root in lexical order and returns every regular file.
// Hidden files and macOS archive metadata are left out.
func DiscoverFolder(root string) ([]SourceFile, error) {
	var files []SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (name == macOSMetadataDir || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isHiddenFile(name) {
			return nil
		}
		files = append(files, NewSourceFile(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

// ExpandPaths turns a mix of files, folders and zip archives into one
// discovery-ordered file list. Archives are unpacked under scratch.
func ExpandPaths(paths []string, scratch string) ([]SourceFile, error) {
	var files []SourceFile
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		switch {
		case info.IsDir():
			found, err := DiscoverFolder(p)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		case strings.EqualFold(filepath.Ext(p), ".zip"):
			found, err := ExtractArchive(p, filepath.Join(scratch, fmt.Sprintf("archive-%d", i)))
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		default:
			files = append(files, NewSourceFile(p))
		}
	}
	return files, nil
}

// ExtractArchive unpacks a zip into dest and returns the extracted files in
// lexical order. Entries that would escape dest are rejected.
func ExtractArchive(zipPath, dest string) ([]SourceFile, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, domain.Wrap(domain.ErrArchiveInvalid, err)
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}

	var files []SourceFile
	for _, entry := range r.File {
		if entry.FileInfo().IsDir() || skipArchiveEntry(entry.Name) {
			continue
		}

		target, err := safeJoin(root, entry.Name)
		if err != nil {
			return nil, err
		}
		if err := extractEntry(entry, target); err != nil {
			return nil, err
		}
		files = append(files, SourceFile{Path: target, Name: filepath.Base(target)})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", domain.Wrap(domain.ErrArchiveInvalid, fmt.Errorf("entry %q escapes the extraction directory", name))
	}
	return target, nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return domain.Wrap(domain.ErrArchiveInvalid, fmt.Errorf("%s: %w", entry.Name, err))
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return domain.Wrap(domain.ErrArchiveInvalid, fmt.Errorf("%s: %w", entry.Name, err))
	}
	return dst.Close()
}

func skipArchiveEntry(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if part == macOSMetadataDir {
			return true
		}
	}
	return isHiddenFile(filepath.Base(name))
}

// isHiddenFile covers dotfiles and Office lock files.
func isHiddenFile(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}
