package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"
)

const defaultHTTPTimeoutSeconds = 5

// SinkConfig declares one verdict destination.
//
//	publishers:
//	  - id: misinformation-alerts
//	    type: sns
//	    route: {kinds: [text], statuses: ["false", misleading]}
//	    attributes: [status, endpoint]
//	    sns: {topic_arn: arn:aws:sns:ap-south-1:1:alerts, region: ap-south-1}
type SinkConfig struct {
	ID         string        `json:"id" yaml:"id"`
	Type       string        `json:"type" yaml:"type"`
	Enabled    *bool         `json:"enabled" yaml:"enabled"`
	Route      Route         `json:"route" yaml:"route"`
	Attributes []string      `json:"attributes" yaml:"attributes"`
	SQS        *SQSConfig    `json:"sqs" yaml:"sqs"`
	SNS        *SNSConfig    `json:"sns" yaml:"sns"`
	PubSub     *PubSubConfig `json:"pubsub" yaml:"pubsub"`
	HTTP       *HTTPConfig   `json:"http" yaml:"http"`
}

// AWSCredentials pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

type SQSConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

type SNSConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// PubSubConfig targets a topic. Endpoint overrides the service address, e.g.
// for an emulator.
type PubSubConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Topic     string `json:"topic" yaml:"topic"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
}

// HTTPConfig posts the event JSON to a webhook.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// IsEnabled defaults to true when enabled is omitted.
func (c SinkConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Load reads sink definitions from a YAML or JSON file and returns the enabled
// ones. Unknown keys are rejected so a misspelt route never silently matches
// every verdict.
func Load(path string) ([]SinkConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []SinkConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decodeStrict(raw, filepath.Ext(path), &file); err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]bool, len(file.Publishers))
	enabled := make([]SinkConfig, 0, len(file.Publishers))
	for i, sink := range file.Publishers {
		sink.normalize()
		if err := sink.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if seen[sink.ID] {
			return nil, fmt.Errorf("duplicate publisher id %q", sink.ID)
		}
		seen[sink.ID] = true
		if sink.IsEnabled() {
			enabled = append(enabled, sink)
		}
	}
	return enabled, nil
}

func decodeStrict(raw []byte, ext string, out any) error {
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		return dec.Decode(out)
	default:
		return fmt.Errorf("unsupported extension %q (expected .yaml, .yml or .json)", ext)
	}
}

func (c *SinkConfig) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Route.Kinds = trimList(c.Route.Kinds, strings.ToLower)
	c.Route.Statuses = trimList(c.Route.Statuses, nil)
	c.Attributes = trimList(c.Attributes, strings.ToLower)
	if len(c.Attributes) == 0 {
		c.Attributes = append([]string(nil), defaultAttributes...)
	}

	if c.SQS != nil {
		c.SQS.QueueURL = strings.TrimSpace(c.SQS.QueueURL)
		c.SQS.Region = strings.TrimSpace(c.SQS.Region)
	}
	if c.SNS != nil {
		c.SNS.TopicARN = strings.TrimSpace(c.SNS.TopicARN)
		c.SNS.Region = strings.TrimSpace(c.SNS.Region)
	}
	if c.PubSub != nil {
		c.PubSub.ProjectID = strings.TrimSpace(c.PubSub.ProjectID)
		c.PubSub.Topic = strings.TrimSpace(c.PubSub.Topic)
		c.PubSub.Endpoint = strings.TrimSpace(c.PubSub.Endpoint)
	}
	if c.HTTP != nil {
		c.HTTP.URL = strings.TrimSpace(c.HTTP.URL)
		c.HTTP.Method = strings.ToUpper(strings.TrimSpace(c.HTTP.Method))
		if c.HTTP.Method == "" {
			c.HTTP.Method = "POST"
		}
		if c.HTTP.TimeoutSeconds <= 0 {
			c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
		}
		c.HTTP.Headers = trimHeaders(c.HTTP.Headers)
	}
}

func (c SinkConfig) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	for _, k := range c.Route.Kinds {
		if k != KindText && k != KindMultimodal {
			return fmt.Errorf("publisher %q: route kind %q (expected text or multimodal)", c.ID, k)
		}
	}
	for _, a := range c.Attributes {
		if !knownAttribute(a) {
			return fmt.Errorf("publisher %q: unknown attribute %q", c.ID, a)
		}
	}

	var missing []string
	switch c.Type {
	case TypeSQS:
		if c.SQS == nil {
			return fmt.Errorf("publisher %q: sqs block is required", c.ID)
		}
		missing = blank(map[string]string{"sqs.uri": c.SQS.QueueURL, "sqs.region": c.SQS.Region})
	case TypeSNS:
		if c.SNS == nil {
			return fmt.Errorf("publisher %q: sns block is required", c.ID)
		}
		missing = blank(map[string]string{"sns.topic_arn": c.SNS.TopicARN, "sns.region": c.SNS.Region})
	case TypePubSub:
		if c.PubSub == nil {
			return fmt.Errorf("publisher %q: pubsub block is required", c.ID)
		}
		missing = blank(map[string]string{"pubsub.project_id": c.PubSub.ProjectID, "pubsub.topic": c.PubSub.Topic})
	case TypeHTTP:
		if c.HTTP == nil {
			return fmt.Errorf("publisher %q: http block is required", c.ID)
		}
		missing = blank(map[string]string{"http.url": c.HTTP.URL})
		if c.HTTP.Method != "POST" && c.HTTP.Method != "PUT" {
			return fmt.Errorf("publisher %q: http.method %q (expected POST or PUT)", c.ID, c.HTTP.Method)
		}
	case "":
		return fmt.Errorf("publisher %q: type is required", c.ID)
	default:
		return fmt.Errorf("publisher %q: unknown type %q", c.ID, c.Type)
	}
	if len(missing) > 0 {
		return fmt.Errorf("publisher %q: %s required", c.ID, strings.Join(missing, ", "))
	}
	return nil
}

// blank returns the sorted names whose values are empty.
func blank(fields map[string]string) []string {
	var out []string
	for name, v := range fields {
		if v == "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func trimList(in []string, fn func(string) string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if fn != nil {
			s = fn(s)
		}
		out = append(out, s)
	}
	return out
}

func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
