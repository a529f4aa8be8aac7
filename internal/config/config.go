// Package config loads the bot services file: which recognizer, knowledge
// base and catalog the bot talks to. Secrets are not stored here, only the
// names of the SSM parameters that hold them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultScoreThreshold = 30.0

// Services is the YAML-mappable services definition.
type Services struct {
	Luis    Luis    `yaml:"luis"`
	QnA     QnA     `yaml:"qna"`
	Catalog Catalog `yaml:"catalog"`
}

type Luis struct {
	AppID    string `yaml:"app_id"`
	Endpoint string `yaml:"endpoint"`
	// KeyParameter is relative to the SSM parameter prefix.
	KeyParameter string `yaml:"key_parameter"`
}

type QnA struct {
	KnowledgeBaseID      string `yaml:"knowledge_base_id"`
	Host                 string `yaml:"host"`
	EndpointKeyParameter string `yaml:"endpoint_key_parameter"`
	Top                  int    `yaml:"top"`
	// ScoreThreshold is on the 0-100 QnA Maker scale; defaults to 30.
	ScoreThreshold *float64 `yaml:"score_threshold"`
}

type Catalog struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads and validates the services file at path.
func Load(path string) (*Services, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a services definition.
func Parse(raw []byte) (*Services, error) {
	var s Services
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("config: decode services: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Services) applyDefaults() {
	if s.Luis.KeyParameter == "" {
		s.Luis.KeyParameter = "luis-key"
	}
	if s.QnA.EndpointKeyParameter == "" {
		s.QnA.EndpointKeyParameter = "qna-endpoint-key"
	}
	if s.QnA.Top <= 0 {
		s.QnA.Top = 1
	}
	if s.QnA.ScoreThreshold == nil {
		threshold := defaultScoreThreshold
		s.QnA.ScoreThreshold = &threshold
	}
}

// Validate reports every missing setting at once.
func (s *Services) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Luis.AppID) == "" {
		errs = append(errs, errors.New("luis.app_id is required"))
	}
	if strings.TrimSpace(s.Luis.Endpoint) == "" {
		errs = append(errs, errors.New("luis.endpoint is required"))
	}
	if strings.TrimSpace(s.QnA.KnowledgeBaseID) == "" {
		errs = append(errs, errors.New("qna.knowledge_base_id is required"))
	}
	if strings.TrimSpace(s.QnA.Host) == "" {
		errs = append(errs, errors.New("qna.host is required"))
	}
	if t := s.QnA.ScoreThreshold; t != nil && (*t < 0 || *t > 100) {
		errs = append(errs, fmt.Errorf("qna.score_threshold %v must be within 0-100", *t))
	}
	if strings.TrimSpace(s.Catalog.BaseURL) == "" {
		errs = append(errs, errors.New("catalog.base_url is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid services: %w", errors.Join(errs...))
	}
	return nil
}

// ParameterName joins an SSM prefix and a relative parameter name.
func ParameterName(prefix, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return strings.TrimRight(prefix, "/") + "/" + name
}
