package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SecretsFile keeps source control passwords out of the projects file.
type SecretsFile struct {
	Projects map[string]ProjectSecrets `json:"projects,omitempty"`
}

type ProjectSecrets struct {
	Password string `json:"password,omitempty"`
}

// SecretsPath returns the secrets file that belongs to configPath.
func SecretsPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), secretsFileName)
}

// LoadSecretsFile loads the secrets file or returns an empty structure if it doesn't exist.
func LoadSecretsFile(path string) (*SecretsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &SecretsFile{Projects: map[string]ProjectSecrets{}}, nil
		}
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var secrets SecretsFile
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file: %w", err)
	}
	if secrets.Projects == nil {
		secrets.Projects = map[string]ProjectSecrets{}
	}
	return &secrets, nil
}

// SaveSecretsFile writes secrets readable by the owner only.
func SaveSecretsFile(path string, secrets *SecretsFile) error {
	if secrets == nil {
		secrets = &SecretsFile{}
	}

	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write secrets: %w", err)
	}
	return nil
}

// SaveProjectPassword stores the source control password for a project.
func SaveProjectPassword(path, project, password string) error {
	if project == "" {
		return fmt.Errorf("project name is required")
	}

	existing, err := LoadSecretsFile(path)
	if err != nil {
		return err
	}
	existing.Projects[project] = ProjectSecrets{Password: password}
	return SaveSecretsFile(path, existing)
}
