package cli

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar names an env file that takes precedence over --env.
const EnvFileVar = "CELLTRANS_ENV_FILE"

// EnvLoader loads a .env file chosen by --env. Variables already present in
// the process environment are never overwritten.
type EnvLoader struct {
	value       *string
	defaultPath string
}

type envCandidate struct {
	path   string
	origin string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		value:       fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Load tries CELLTRANS_ENV_FILE, the --env path, its basename in the working
// directory and the default path, in that order, and returns the file used.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	log.SetOutput(os.Stderr)

	candidates := l.candidates()
	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := godotenv.Load(candidate.path); err != nil {
			tried = append(tried, candidate.path)
			continue
		}
		log.Printf("Loaded environment from %s (%s)", candidate.path, candidate.origin)
		return candidate.path, nil
	}

	return "", fmt.Errorf("no env file loaded (tried %s)", strings.Join(tried, ", "))
}

func (l *EnvLoader) candidates() []envCandidate {
	requested := ""
	if l.value != nil {
		requested = strings.TrimSpace(*l.value)
	}
	if requested == "" {
		requested = l.defaultPath
	}

	out := make([]envCandidate, 0, 4)
	if custom := strings.TrimSpace(os.Getenv(EnvFileVar)); custom != "" {
		out = append(out, envCandidate{path: custom, origin: EnvFileVar})
	}
	out = append(out, envCandidate{path: requested, origin: "--env"})
	if base := filepath.Base(requested); base != requested {
		out = append(out, envCandidate{path: base, origin: "basename"})
	}
	out = append(out, envCandidate{path: l.defaultPath, origin: "default"})

	seen := make(map[string]struct{}, len(out))
	unique := out[:0]
	for _, candidate := range out {
		if _, dup := seen[candidate.path]; dup {
			continue
		}
		seen[candidate.path] = struct{}{}
		unique = append(unique, candidate)
	}
	return unique
}
