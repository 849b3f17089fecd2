package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFile is the manifest name inside a config directory.
const ChecksumFile = ".checksums"

const manifestVersion = 1

// ErrNoChecksums is returned by LoadChecksums when the directory has no
// manifest. Verification is skipped in that case.
var ErrNoChecksums = errors.New("checksums file not found (run 'hearth config hash')")

// ChecksumManifest is the on-disk .checksums format.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// HashUpdateFileResult is the outcome for one config file.
type HashUpdateFileResult struct {
	Filename string
	Path     string
	Exists   bool
	Hash     string
}

// HashUpdateReport lists what a manifest run hashed and where it wrote.
type HashUpdateReport struct {
	ConfigDir    string
	ChecksumPath string
	Written      bool
	Files        []HashUpdateFileResult
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeBlake3Hash returns the hex BLAKE3 digest of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return digest(data), nil
}

// VerifyFileHash compares a file against an expected digest.
func VerifyFileHash(filePath, expectedHash string) error {
	actual, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}
	if actual != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actual)
	}
	return nil
}

// LockConfig loads the include tree rooted at configPath and writes a
// .checksums manifest next to it covering every file in the same directory.
// Files included from other directories are not locked.
func LockConfig(configPath string, dryRun bool) (*HashUpdateReport, error) {
	root, err := resolveRoot(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfigFile(root)
	if err != nil {
		return nil, err
	}
	cfg.SourceFiles = []string{root}
	if len(cfg.Include) > 0 {
		if err := loadIncludes(cfg, cfg.Include, filepath.Dir(root), map[string]bool{root: true}); err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(root)
	var names []string
	for _, p := range cfg.SourceFiles {
		if filepath.Dir(p) == dir {
			names = append(names, filepath.Base(p))
		}
	}
	return GenerateChecksumsWithReport(dir, names, dryRun)
}

// GenerateChecksumsWithReport hashes files (names relative to configDir)
// and writes the manifest unless dryRun. Missing files are reported and
// left out of the manifest.
func GenerateChecksumsWithReport(configDir string, files []string, dryRun bool) (*HashUpdateReport, error) {
	report := &HashUpdateReport{
		ConfigDir:    configDir,
		ChecksumPath: filepath.Join(configDir, ChecksumFile),
		Files:        make([]HashUpdateFileResult, 0, len(files)),
	}
	hashes := make(map[string]string, len(files))

	for _, name := range files {
		res := HashUpdateFileResult{Filename: name, Path: filepath.Join(configDir, name)}
		data, err := os.ReadFile(res.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to hash %s: %w", name, err)
		default:
			res.Exists = true
			res.Hash = digest(data)
			hashes[name] = res.Hash
		}
		report.Files = append(report.Files, res)
	}

	if dryRun {
		return report, nil
	}
	if err := writeManifest(report.ChecksumPath, hashes); err != nil {
		return nil, err
	}
	report.Written = true
	return report, nil
}

func writeManifest(path string, hashes map[string]string) error {
	data, err := yaml.Marshal(ChecksumManifest{
		Version:     manifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Hashes:      hashes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checksums: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write checksums: %w", err)
	}
	return nil
}

// LoadChecksums reads the .checksums file from a config directory.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(configDir, ChecksumFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoChecksums
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var m ChecksumManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported checksums version: %d", m.Version)
	}
	return &m, nil
}
