package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// FileSystem is the file access the loader needs. Tests substitute it.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem reads from the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadEnv loads a dotenv file into the process environment. Variables that
// are already set win.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

var (
	configFileNames = []string{"config.yml", "config.yaml"}
	searchDepths    = []string{".", "..", filepath.Join("..", "..")}
)

// Resolver locates the config and dotenv files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles holds the files the loader reads. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths from opts and searches for the
// ones left empty.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	dirs := searchDirs(serviceName)
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(dirs, configFileNames)
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(dirs, []string{".env." + serviceName, ".env"})
	}
	return files
}

// first returns the first existing file, trying every name in a directory
// before moving to the next one.
func (r *Resolver) first(dirs, names []string) string {
	for _, dir := range dirs {
		for _, name := range names {
			if p := filepath.Join(dir, name); r.FileSystem.Exists(p) {
				return p
			}
		}
	}
	return ""
}

// searchDirs lists candidate directories from most to least specific:
// cmd/<service>, config/<service>, config and the directory itself, each
// tried from the working directory and up to two parents. A hyphenated
// service also matches on its last segment, so "acme-dikit" finds cmd/dikit.
func searchDirs(serviceName string) []string {
	names := []string{serviceName}
	if i := strings.LastIndex(serviceName, "-"); i >= 0 && i < len(serviceName)-1 {
		names = append(names, serviceName[i+1:])
	}

	var rel []string
	for _, n := range names {
		rel = append(rel, filepath.Join("cmd", n))
	}
	for _, n := range names {
		rel = append(rel, filepath.Join("config", n))
	}
	rel = append(rel, "config", ".")

	dirs := make([]string, 0, len(rel)*len(searchDepths))
	for _, r := range rel {
		for _, depth := range searchDepths {
			dirs = append(dirs, filepath.Join(depth, r))
		}
	}
	return dirs
}
