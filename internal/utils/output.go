package utils

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OutputJSON marshals the provided data as indented JSON and prints it to stdout
func OutputJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// OutputYAML marshals the provided data as YAML and prints it to stdout
func OutputYAML(data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
