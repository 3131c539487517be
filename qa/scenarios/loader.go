// Package scenarios replays scripted conversations against the full
// handler stack. Each scenario is a YAML file in this directory.
package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Step is one inbound message plus what the sender should get back.
type Step struct {
	Phone string `yaml:"phone"`
	Name  string `yaml:"name,omitempty"`
	Say   string `yaml:"say"`
	// ReplyContains are substrings the direct reply must include.
	ReplyContains []string `yaml:"reply_contains,omitempty"`
	// Notices, when set, is the exact number of third-party notifications.
	Notices *int `yaml:"notices,omitempty"`
	// NoticeTo lists phones that must each receive at least one notification.
	NoticeTo []string `yaml:"notice_to,omitempty"`
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
