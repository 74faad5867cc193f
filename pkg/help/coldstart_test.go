package help

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestColdstartYAMLParses(t *testing.T) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(ColdstartYAML), &doc); err != nil {
		t.Fatalf("ColdstartYAML is not valid YAML: %v", err)
	}
	for _, key := range []string{"strategies", "commands", "inputs", "ranking_rules"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing section %q", key)
		}
	}
}
