package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// envTemplate is the default application configuration written by the
// Provision stage when no .env exists. The orchestrator never inspects
// these values; they are passed through to the services it launches.
const envTemplate = `# AI platform configuration
ENVIRONMENT=development
HOST=0.0.0.0
PORT=5000

SECRET_KEY=your-secret-key-change-in-production
JWT_SECRET=your-jwt-secret-change-in-production

DATABASE_URL=sqlite:///./database/main.db
VECTOR_DB_PATH=./database/vector/chromadb

MODEL_PATH=./ai-models
DEFAULT_MODEL=qwen2.5:7b

UPLOAD_DIR=./uploads
DOCUMENTS_DIR=./documents

LOG_LEVEL=INFO
LOG_FILE=./logs/app.log
`

// EnsureEnvFile writes the default template to path if no file exists
// there. An existing file is never overwritten.
func EnsureEnvFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(envTemplate), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
