package out

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gatekit/internal/modules/simulator/domain"
	simout "gatekit/internal/modules/simulator/port/out"
)

type scenarioFile struct {
	Plugin   string        `yaml:"plugin"`
	Config   string        `yaml:"config"`
	Sessions []sessionNode `yaml:"sessions"`
}

type sessionNode struct {
	ID             string            `yaml:"id"`
	Protocol       string            `yaml:"protocol"`
	ConnectionName string            `yaml:"connection_name"`
	GatewayUser    string            `yaml:"gateway_user"`
	GatewayDomain  string            `yaml:"gateway_domain"`
	ClientIP       string            `yaml:"client_ip"`
	ClientPort     int               `yaml:"client_port"`
	ServerIP       string            `yaml:"server_ip"`
	ServerPort     int               `yaml:"server_port"`
	ServerHostname string            `yaml:"server_hostname"`
	ServerUsername string            `yaml:"server_username"`
	ServerDomain   string            `yaml:"server_domain"`
	KeyValuePairs  map[string]string `yaml:"key_value_pairs"`
	Answers        map[string]string `yaml:"answers"`
	Expect         expectNode        `yaml:"expect"`
}

type expectNode struct {
	Authenticate string `yaml:"authenticate"`
	Authorize    string `yaml:"authorize"`
}

type YAMLScenarioStore struct{}

func NewYAMLScenarioStore() simout.ScenarioStore {
	return YAMLScenarioStore{}
}

func (YAMLScenarioStore) Load(path string) (domain.Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	// An empty plugin is allowed here; the runner requires one from either
	// the scenario or its own caller.
	scenario := domain.Scenario{Plugin: file.Plugin, Config: file.Config}
	for _, node := range file.Sessions {
		scenario.Sessions = append(scenario.Sessions, domain.SessionScript{
			ID:             node.ID,
			Protocol:       node.Protocol,
			ConnectionName: node.ConnectionName,
			GatewayUser:    node.GatewayUser,
			GatewayDomain:  node.GatewayDomain,
			ClientIP:       node.ClientIP,
			ClientPort:     node.ClientPort,
			ServerIP:       node.ServerIP,
			ServerPort:     node.ServerPort,
			ServerHostname: node.ServerHostname,
			ServerUsername: node.ServerUsername,
			ServerDomain:   node.ServerDomain,
			KeyValuePairs:  node.KeyValuePairs,
			Answers:        node.Answers,
			Expect: domain.Expectation{
				Authenticate: node.Expect.Authenticate,
				Authorize:    node.Expect.Authorize,
			},
		})
	}
	return scenario, nil
}
