package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"gopkg.in/ini.v1"
)

type ProfileRegistry interface {
	GetProfiles() ([]domain.ConfigProfile, error)
}

type cfgRegistry struct {
	configPath      string
	credentialsPath string
}

// NewProfileRegistry lists AWS profiles from the shared config and credentials
// files. Missing files are treated as empty.
func NewProfileRegistry(configPath, credentialsPath string) ProfileRegistry {
	return &cfgRegistry{configPath: configPath, credentialsPath: credentialsPath}
}

// DefaultPaths returns the shared AWS config and credentials files, honoring
// AWS_CONFIG_FILE and AWS_SHARED_CREDENTIALS_FILE.
func DefaultPaths() (configPath, credentialsPath string) {
	home, _ := os.UserHomeDir()

	configPath = os.Getenv("AWS_CONFIG_FILE")
	if configPath == "" {
		configPath = filepath.Join(home, ".aws", "config")
	}
	credentialsPath = os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	if credentialsPath == "" {
		credentialsPath = filepath.Join(home, ".aws", "credentials")
	}
	return configPath, credentialsPath
}

func (cr *cfgRegistry) GetProfiles() ([]domain.ConfigProfile, error) {
	profiles := make(map[string]domain.ConfigProfile)

	cfg, err := ini.LooseLoad(cr.configPath)
	if err != nil {
		return nil, err
	}
	for _, section := range cfg.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		// config file sections are "default" or "profile <name>"
		name := strings.TrimSpace(strings.TrimPrefix(section.Name(), "profile "))
		profiles[name] = domain.ConfigProfile{
			Name:   name,
			Source: domain.ProfileSourceConfig,
			Region: section.Key("region").String(),
		}
	}

	creds, err := ini.LooseLoad(cr.credentialsPath)
	if err != nil {
		return nil, err
	}
	for _, section := range creds.Sections() {
		if len(section.Keys()) == 0 {
			continue
		}
		if _, exists := profiles[section.Name()]; exists {
			continue
		}
		profiles[section.Name()] = domain.ConfigProfile{
			Name:   section.Name(),
			Source: domain.ProfileSourceCredentials,
			Region: section.Key("region").String(),
		}
	}

	result := make([]domain.ConfigProfile, 0, len(profiles))
	for _, p := range profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
