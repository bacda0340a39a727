package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"gopkg.in/yaml.v3"
)

// LoadFile overlays a flat YAML file onto config. Keys already present in
// config (the environment) win. Sequences are joined with commas.
func LoadFile(config map[string]string, filePath string) (int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		values[strings.ToUpper(key)] = stringify(value)
	}
	return merge(config, values), nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// LoadSSM overlays every parameter under prefix onto config. The key is the
// last path segment, so /portfolio/prod/SUPABASE_JWT_SECRET becomes
// SUPABASE_JWT_SECRET. Keys already present in config win.
func LoadSSM(ctx context.Context, client ssm.GetParametersByPathAPIClient, config map[string]string, prefix string) (int, error) {
	values := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("load ssm parameters under %s: %w", prefix, err)
		}
		for _, p := range page.Parameters {
			name := aws.ToString(p.Name)
			if name == "" {
				continue
			}
			values[path.Base(name)] = aws.ToString(p.Value)
		}
	}
	return merge(config, values), nil
}
