package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv returns credential options for Google clients.
// GOOGLE_APPLICATION_CREDENTIALS_JSON (inline JSON) wins over
// GOOGLE_APPLICATION_CREDENTIALS (inline JSON or a file path). With neither
// set the client falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

// EmulatorHost reports the storage emulator endpoint, if one is configured.
func EmulatorHost() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
}

// StorageClientOptions picks options for a Cloud Storage client: no auth
// against an emulator, env credentials otherwise.
func StorageClientOptions() []option.ClientOption {
	if EmulatorHost() != "" {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	return ClientOptionsFromEnv()
}
