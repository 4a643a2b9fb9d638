package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GCSOptions configures how a GCS client authenticates.
// Empty fields fall back to application default credentials.
type GCSOptions struct {
	Project      string
	Credentials  string // key file path (~ expanded) or the key JSON itself
	QuotaProject string
	Impersonate  string
}

// ClientOptions converts o into client options for the Google API libraries.
func (o GCSOptions) ClientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if o.Credentials != "" {
		contents, err := pathOrContents(o.Credentials)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON([]byte(contents)))
	}

	if o.QuotaProject != "" {
		opts = append(opts, option.WithQuotaProject(o.QuotaProject))
	}

	if o.Impersonate != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: o.Impersonate,
			Scopes:          []string{cloudPlatformScope},
		})
		if err != nil {
			return nil, fmt.Errorf("impersonate %s: %w", o.Impersonate, err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	return opts, nil
}

// pathOrContents returns the contents of the file at in, or in itself when it
// does not name an existing file. An absolute path that does not exist is an
// error rather than being mistaken for inline JSON.
func pathOrContents(in string) (string, error) {
	if in == "" {
		return "", nil
	}

	filePath := in
	if filePath[0] == '~' {
		expanded, err := homedir.Expand(filePath)
		if err != nil {
			return "", err
		}
		filePath = expanded
	}

	if _, err := os.Stat(filePath); err == nil {
		contents, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return string(contents), nil
	}

	if len(filePath) > 1 && (filePath[0] == '/' || filePath[0] == '\\') {
		return "", fmt.Errorf("%s: no such file or dir", filePath)
	}

	return in, nil
}
