package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

const sampleHeader = `# sitepublisher configuration.
# Every value can be overridden by the environment variable listed in "sitepublisher --help".
# Secrets (GITHUB_TOKEN, CMS_JWT_SECRET, AWS keys) are best left to the environment.
`

// Sample returns the configuration written by "sitepublisher init": defaults with both
// standard targets and no secrets.
func Sample() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    5 << 20,
		},
		GitHub: GitHubConfig{Repo: "behavioral-health/website", Branch: "main", APIURL: "https://api.github.com"},
		S3:     S3Config{Region: "us-east-1"},
		Git:    GitConfig{AuthorName: "Site Publisher", AuthorEmail: "cms@localhost"},
		Deploy: DeployConfig{
			Timeout: 5 * time.Second,
			NATS:    NATSConfig{Subject: "sitepublisher.deploy", Stream: "SITEPUBLISHER"},
			Kafka:   KafkaConfig{Topic: "sitepublisher.deploy"},
		},
		Publish: PublishConfig{
			StoreTimeout:  10 * time.Second,
			CommitMessage: "Update site content via CMS",
			Concurrency:   4,
			Retry:         RetryConfig{Mode: "exponential", Initial: 250 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 2},
		},
		History: HistoryConfig{Retention: 720 * time.Hour, PruneInterval: time.Hour},
		Auth:    AuthConfig{Issuer: "sitepublisher", Audience: "cms-editor", TokenTTL: 12 * time.Hour},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Targets: DefaultTargets(),
	}
}

// MarshalSample renders cfg as YAML with durations in their human form ("10s").
func MarshalSample(cfg Config) ([]byte, error) {
	node := toNode(reflect.ValueOf(cfg))
	var buf bytes.Buffer
	buf.WriteString(sampleHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, errors.InternalError("failed to render sample configuration").WithCause(err).Build()
	}
	if err := enc.Close(); err != nil {
		return nil, errors.InternalError("failed to render sample configuration").WithCause(err).Build()
	}
	return buf.Bytes(), nil
}

// WriteSample writes the sample configuration to path, refusing to overwrite unless force.
func WriteSample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}
	data, err := MarshalSample(Sample())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.RuntimeError("failed to write configuration file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func toNode(v reflect.Value) *yaml.Node {
	if v.Type() == durationType {
		return scalar(time.Duration(v.Int()).String(), "!!str")
	}
	switch v.Kind() {
	case reflect.Struct:
		n := &yaml.Node{Kind: yaml.MappingNode}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				continue
			}
			n.Content = append(n.Content, scalar(name, "!!str"), toNode(v.Field(i)))
		}
		return n
	case reflect.Slice:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		if v.Len() == 0 {
			n.Style = yaml.FlowStyle
		}
		for i := 0; i < v.Len(); i++ {
			n.Content = append(n.Content, toNode(v.Index(i)))
		}
		return n
	case reflect.Bool:
		return scalar(strconv.FormatBool(v.Bool()), "!!bool")
	case reflect.Int, reflect.Int64:
		return scalar(strconv.FormatInt(v.Int(), 10), "!!int")
	default:
		return scalar(v.String(), "!!str")
	}
}

func scalar(value, tag string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: tag}
	if tag == "!!str" && value == "" {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}
